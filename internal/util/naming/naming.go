package naming

import (
	"fmt"
	"strings"
)

// Naming functions for print resources.
// All queues and ports follow consistent naming patterns to enable easy
// identification and idempotent re-binding.

// Port names a TCP/IP printer port after the device address, matching the
// IP_<addr> convention print servers use.
func Port(deviceAddr string) string {
	return "IP_" + sanitize(deviceAddr)
}

// Queue derives a queue name from the device name. Whitespace and
// separator characters are folded to underscores so the name is safe for
// both lpadmin and the Windows spooler.
func Queue(deviceName string) string {
	return sanitize(deviceName)
}

// Driver names a registered driver after its driver identity.
func Driver(driverUUID string) string {
	return sanitize(driverUUID)
}

// Job labels an install job after its target device.
func Job(deviceName, runID string) string {
	return fmt.Sprintf("%s-%s", sanitize(deviceName), runID)
}

// sanitize folds characters that OS print tooling mishandles.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
