package testing

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/spoolsmith/spoolsmith/internal/platform/driverops"
)

// Payload is an in-memory driver payload archive with its content digest.
type Payload struct {
	Data   []byte
	SHA256 string
}

// NewPayload builds a zip archive from the given entries and computes
// its hex digest. Entries with a trailing slash become directories.
func NewPayload(t *testing.T, entries map[string]string) Payload {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return Payload{Data: buf.Bytes(), SHA256: hex.EncodeToString(sum[:])}
}

// DefaultPayload builds a minimal flat-layout payload with one PPD.
func DefaultPayload(t *testing.T) Payload {
	t.Helper()
	return NewPayload(t, map[string]string{
		"driver.ppd": "*PPD-Adobe: \"4.3\"\n*ModelName: \"Test Device\"\n",
		"README.txt": "test driver payload\n",
	})
}

// NewPayloadServer starts an HTTP server that serves the payload on every
// path. The server is shut down via t.Cleanup.
func NewPayloadServer(t *testing.T, p Payload) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(p.Data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// BackendFixture provides pre-configured backend mocks for common test scenarios.
type BackendFixture struct {
	mock *MockBackend
}

// NewBackendFixture creates a new backend fixture.
func NewBackendFixture() *BackendFixture {
	return &BackendFixture{mock: NewMockBackend()}
}

// Mock returns the underlying MockBackend for custom configuration.
func (f *BackendFixture) Mock() *MockBackend {
	return f.mock
}

// SuccessfulInstall configures the mock so every pipeline operation succeeds.
// Returns the same mock for chaining.
func (f *BackendFixture) SuccessfulInstall() *MockBackend {
	f.mock.On("Probe", mock.Anything, mock.Anything).Return(nil)
	f.mock.On("StageDriver", mock.Anything, mock.Anything).
		Return(driverops.StagedDriver{PublishedID: "spoolsmith/driver.ppd"}, nil)
	f.mock.On("RegisterDriver", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.mock.On("EnsurePort", mock.Anything, mock.Anything, mock.Anything).
		Return("socket://192.168.10.40:9100", nil)
	f.mock.On("EnsureQueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.mock.On("VerifyQueue", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return f.mock
}

// WithProbeError configures the mock to fail device probing.
func (f *BackendFixture) WithProbeError(err error) *MockBackend {
	f.mock.On("Probe", mock.Anything, mock.Anything).Return(err)
	return f.mock
}

// WithStageError configures the mock to fail driver staging after a
// successful probe.
func (f *BackendFixture) WithStageError(err error) *MockBackend {
	f.mock.On("Probe", mock.Anything, mock.Anything).Return(nil)
	f.mock.On("StageDriver", mock.Anything, mock.Anything).
		Return(driverops.StagedDriver{}, err)
	return f.mock
}

// WithQueueVerifyError configures the mock so everything succeeds except
// the final queue verification.
func (f *BackendFixture) WithQueueVerifyError(err error) *MockBackend {
	f.mock.On("Probe", mock.Anything, mock.Anything).Return(nil)
	f.mock.On("StageDriver", mock.Anything, mock.Anything).
		Return(driverops.StagedDriver{PublishedID: "spoolsmith/driver.ppd"}, nil)
	f.mock.On("RegisterDriver", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.mock.On("EnsurePort", mock.Anything, mock.Anything, mock.Anything).
		Return("socket://192.168.10.40:9100", nil)
	f.mock.On("EnsureQueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.mock.On("VerifyQueue", mock.Anything, mock.Anything, mock.Anything).Return(err)
	return f.mock
}

// ErrDeviceUnreachable is a canned probe failure for tests.
var ErrDeviceUnreachable = errors.New("device unreachable")
