// Package wizard implements the interactive configuration wizard behind
// `spoolsmith init`. It walks the operator through the driver store
// location, backend selection, a first driver catalog entry, and a first
// device, then writes the resulting YAML config.
package wizard
