// Package retry provides exponential backoff retry logic for transient failures.
//
// The [WithExponentialBackoff] function retries an operation with configurable
// max attempts, initial delay, and maximum delay. It is used for payload
// downloads and other network operations that may fail transiently. Errors
// wrapped with [Fatal] (malformed input that cannot succeed on retry) stop
// the loop immediately.
package retry
