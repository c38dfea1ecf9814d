// Package testing provides test utilities, builders, and fixtures for unit and integration tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - PayloadFixture: In-memory driver payload archives and HTTP servers
//   - MockBackend: Shared mock for platform driver operations
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithStoreRoot(t.TempDir()).
//	    WithDriver("acme_laser-mk3", "https://drivers.example.com/mk3.zip", digest).
//	    Build()
//
//	fixture := testing.NewBackendFixture()
//	mockBackend := fixture.SuccessfulInstall()
package testing
