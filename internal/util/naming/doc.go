// Package naming provides consistent naming functions for print resources.
//
// Queue and port names are derived from device attributes so repeated
// installs of the same device converge on the same OS objects instead of
// accumulating duplicates.
package naming
