// Package install sequences the driver provisioning pipeline and emits its
// step-wise progress protocol.
//
// A job walks a fixed sequence of steps (job.init through job.done). Each
// step is wrapped by a [StepReporter] that guarantees exactly one terminal
// event (success, skipped, or failed) is emitted for it, even when the
// code path abandons the step early. Events flow through a [Bus] to any
// number of subscribers; delivery problems are logged and never abort the
// pipeline.
package install
