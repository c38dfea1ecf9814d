// Package driverops abstracts the operating system's printer driver and
// queue facilities behind a single Backend interface.
//
// Two implementations exist: a CUPS backend that drives lpadmin/lpstat via
// the command executor, and a Windows backend that stages INF files through
// the setup API and binds queues via PowerShell. Backend selection happens
// once at startup; nothing else in the pipeline branches on the platform.
package driverops
