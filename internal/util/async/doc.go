// Package async provides utilities for parallel task execution with
// error collection.
//
// The [RunParallel] function executes multiple operations concurrently
// and returns the first error. It is used to fan install jobs out across
// several devices at once.
package async
