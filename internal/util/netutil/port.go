// Package netutil provides network utility functions for probing print
// device ports.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"
)

const (
	// RawPrintPort is the JetDirect raw socket port most network print
	// devices listen on.
	RawPrintPort = 9100
	// IPPPort is the Internet Printing Protocol port.
	IPPPort = 631
)

// CheckPort performs a single TCP dial against the target and reports
// whether the port answered within the timeout.
func CheckPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", address, err)
	}
	_ = conn.Close()
	return nil
}

// WaitForPort waits for a TCP port to be open on the target host.
// It retries every second until the port is accessible or the timeout is
// reached. Used when a device is expected to come online shortly, such as
// right after a power cycle.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Check immediately before waiting for ticker
	if conn, err := net.DialTimeout("tcp", address, 2*time.Second); err == nil {
		_ = conn.Close()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timeout waiting for %s", address)
			}
			return ctx.Err()
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", address, 2*time.Second)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}
