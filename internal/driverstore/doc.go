// Package driverstore manages the durable on-disk driver store.
//
// The store is laid out under a single root directory:
//
//	<root>/<content-address>/payload/payload.zip   cached driver payloads
//	<root>/<driver-uuid>/_staging/<run-id>/        run-scoped extraction workspace
//	<root>/<driver-uuid>/extracted/                semi-persistent extracted tree
//	<root>/...                                     materialized driver files
//
// Content addresses are derived from the expected payload digest, so the
// payload cache is self-validating: a cached file either hashes to its own
// address or is purged. The store is append/overwrite-only; nothing in this
// package deletes materialized driver content.
package driverstore
