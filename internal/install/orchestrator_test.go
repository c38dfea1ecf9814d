package install

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/metrics"
	"github.com/spoolsmith/spoolsmith/internal/execute"
	"github.com/spoolsmith/spoolsmith/internal/fetch"
	"github.com/spoolsmith/spoolsmith/internal/platform/driverops"
)

// fakeFetcher serves a pre-built local payload without touching the network.
type fakeFetcher struct {
	path      string
	fromCache bool
	err       error
	calls     int
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ string, progress fetch.ProgressFunc) (fetch.Result, error) {
	f.calls++
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	if progress != nil {
		progress(1024, 1024, 100)
	}
	return fetch.Result{Path: f.path, FromCache: f.fromCache, BytesWritten: 1024}, nil
}

// fakeBackend records the OS-facing calls and replays scripted failures.
type fakeBackend struct {
	calls []string
	errs  map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{errs: map[string]error{}}
}

func (b *fakeBackend) record(method string) error {
	b.calls = append(b.calls, method)
	return b.errs[method]
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Probe(context.Context, driverops.Device) error {
	return b.record("Probe")
}

func (b *fakeBackend) StageDriver(_ context.Context, defPath string) (driverops.StagedDriver, error) {
	if err := b.record("StageDriver"); err != nil {
		return driverops.StagedDriver{}, err
	}
	if _, err := os.Stat(defPath); err != nil {
		return driverops.StagedDriver{}, err
	}
	return driverops.StagedDriver{PublishedID: "fake/" + filepath.Base(defPath)}, nil
}

func (b *fakeBackend) RegisterDriver(context.Context, string, driverops.StagedDriver) error {
	return b.record("RegisterDriver")
}

func (b *fakeBackend) EnsurePort(_ context.Context, portName string, _ driverops.Device) (string, error) {
	return portName, b.record("EnsurePort")
}

func (b *fakeBackend) EnsureQueue(context.Context, string, string, string) error {
	return b.record("EnsureQueue")
}

func (b *fakeBackend) VerifyQueue(context.Context, string, string) error {
	return b.record("VerifyQueue")
}

// buildPayload writes a zip with the given files and returns its path and
// hex digest.
func buildPayload(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "payload.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	sum := sha256.Sum256(buf.Bytes())
	return path, hex.EncodeToString(sum[:])
}

func testRequest(digest string) Request {
	return Request{
		JobID:          "job-1",
		DeviceName:     "lobby",
		DeviceAddr:     "10.0.0.5",
		DriverUUID:     "acme_laser-mk3",
		PayloadURL:     "https://drivers.example.com/mk3.zip",
		PayloadSHA256:  digest,
		DefinitionFile: "driver.ppd",
	}
}

// terminalEvents returns each step's terminal event in emission order.
func terminalEvents(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.State.Terminal() {
			out = append(out, e)
		}
	}
	return out
}

func stepOrder(events []Event) []StepID {
	var out []StepID
	for _, e := range events {
		out = append(out, e.Step)
	}
	return out
}

func newTestOrchestrator(t *testing.T, fetcher PayloadFetcher, backend driverops.Backend, rec *recordEmitter) (*Orchestrator, *driverstore.Store) {
	t.Helper()
	store := driverstore.New(filepath.Join(t.TempDir(), "store"))
	return NewOrchestrator(store, fetcher, backend, rec, logr.Discard()), store
}

func TestOrchestrator_FullSequence(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{
		"driver.ppd": "*PPD-Adobe: \"4.3\"\n",
		"readme.txt": "v2",
	})
	fetcher := &fakeFetcher{path: payload}
	backend := newFakeBackend()
	rec := &recordEmitter{}
	o, store := newTestOrchestrator(t, fetcher, backend, rec)

	res, err := o.Run(context.Background(), testRequest(digest))
	require.NoError(t, err)

	terms := terminalEvents(rec.events)
	assert.Equal(t, []StepID{
		StepJobInit,
		StepDeviceProbe,
		StepDriverDownload,
		StepDriverVerify,
		StepDriverExtract,
		StepDriverStage,
		StepDriverRegister,
		StepEnsurePort,
		StepEnsureQueue,
		StepFinalVerify,
		StepJobDone,
	}, stepOrder(terms))
	for _, e := range terms {
		assert.Equal(t, StateSuccess, e.State, "step %s", e.Step)
	}

	assert.Equal(t, []string{
		"Probe", "StageDriver", "RegisterDriver", "EnsurePort", "EnsureQueue", "VerifyQueue",
	}, backend.calls)

	assert.Equal(t, "job-1", res.JobID)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, "fake/driver.ppd", res.Staged.PublishedID)
	assert.Equal(t, "IP_10.0.0.5", res.PortID)
	assert.Equal(t, "lobby", res.QueueName)

	// The extracted tree was materialized into the store root and the
	// staging workspace was cleaned up.
	assert.FileExists(t, filepath.Join(store.Root(), "driver.ppd"))
	assert.FileExists(t, filepath.Join(store.Root(), "readme.txt"))
	assert.NoDirExists(t, filepath.Join(store.Root(), "acme_laser-mk3", "_staging"))
}

func TestOrchestrator_ExtractCountsBytes(t *testing.T) {
	files := map[string]string{
		"driver.ppd": "*PPD-Adobe: \"4.3\"\n",
		"data.bin":   "0123456789abcdef",
	}
	payload, digest := buildPayload(t, files)
	fetcher := &fakeFetcher{path: payload}
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, newFakeBackend(), rec)

	before := testutil.ToFloat64(metrics.ExtractedBytesTotal)
	_, err := o.Run(context.Background(), testRequest(digest))
	require.NoError(t, err)

	var want float64
	for _, content := range files {
		want += float64(len(content))
	}
	assert.Equal(t, want, testutil.ToFloat64(metrics.ExtractedBytesTotal)-before)
}

func TestOrchestrator_CacheHitSkipsDownload(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{"driver.ppd": "ppd"})
	fetcher := &fakeFetcher{path: payload, fromCache: true}
	backend := newFakeBackend()
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, backend, rec)

	res, err := o.Run(context.Background(), testRequest(digest))
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	var downloadState State
	for _, e := range terminalEvents(rec.events) {
		if e.Step == StepDriverDownload {
			downloadState = e.State
		}
	}
	assert.Equal(t, StateSkipped, downloadState)
}

func TestOrchestrator_ExtractFailureStopsPipeline(t *testing.T) {
	// A payload that is not a zip archive fails the extract step.
	notZip := filepath.Join(t.TempDir(), "payload.zip")
	content := []byte("this is not a zip file")
	require.NoError(t, os.WriteFile(notZip, content, 0o644))
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	fetcher := &fakeFetcher{path: notZip}
	backend := newFakeBackend()
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, backend, rec)

	_, err := o.Run(context.Background(), testRequest(digest))
	require.Error(t, err)

	terms := terminalEvents(rec.events)
	assert.Equal(t, []StepID{
		StepJobInit,
		StepDeviceProbe,
		StepDriverDownload,
		StepDriverVerify,
		StepDriverExtract,
		StepJobFailed,
	}, stepOrder(terms))

	var failed, jobFailed int
	for _, e := range terms {
		if e.State == StateFailed {
			failed++
		}
		if e.Step == StepJobFailed {
			jobFailed++
			require.NotNil(t, e.Error)
			assert.Equal(t, CodeExtractFailed, e.Error.Code)
		}
	}
	assert.Equal(t, 2, failed, "the failing step and the closing job.failed event")
	assert.Equal(t, 1, jobFailed, "exactly one job.failed event")

	// Later OS-facing steps never ran.
	assert.Equal(t, []string{"Probe"}, backend.calls)
}

func TestOrchestrator_TraversalPayloadRejected(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{
		"../evil.ppd": "outside",
	})
	fetcher := &fakeFetcher{path: payload}
	backend := newFakeBackend()
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, backend, rec)

	_, err := o.Run(context.Background(), testRequest(digest))
	require.Error(t, err)

	terms := terminalEvents(rec.events)
	last := terms[len(terms)-1]
	assert.Equal(t, StepJobFailed, last.Step)
	require.NotNil(t, last.Error)
	assert.Equal(t, CodePathTraversal, last.Error.Code)
}

func TestOrchestrator_FailedExtractRemovesStaging(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{
		"../evil.ppd": "outside",
	})
	fetcher := &fakeFetcher{path: payload}
	rec := &recordEmitter{}
	o, store := newTestOrchestrator(t, fetcher, newFakeBackend(), rec)

	_, err := o.Run(context.Background(), testRequest(digest))
	require.Error(t, err)

	assert.NoDirExists(t, filepath.Join(store.Root(), "acme_laser-mk3", "_staging"))
}

func TestOrchestrator_FailedExtractKeepsStagingOnRequest(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{
		"driver.ppd":  "ppd",
		"../evil.ppd": "outside",
	})
	fetcher := &fakeFetcher{path: payload}
	rec := &recordEmitter{}
	o, store := newTestOrchestrator(t, fetcher, newFakeBackend(), rec)

	req := testRequest(digest)
	req.KeepStaging = true
	_, err := o.Run(context.Background(), req)
	require.Error(t, err)

	// The run's staging workspace survives for inspection.
	staging := filepath.Join(store.Root(), "acme_laser-mk3", "_staging")
	entries, readErr := os.ReadDir(staging)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1, "one run directory per attempt")
}

func TestOrchestrator_ProbeFailureSkipsDownload(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{"driver.ppd": "ppd"})
	fetcher := &fakeFetcher{path: payload}
	backend := newFakeBackend()
	backend.errs["Probe"] = &execute.CommandError{
		Command: "lpstat -r",
		Result:  execute.Result{Stderr: "scheduler is not running", ExitCode: 1},
		Err:     errors.New("exit status 1"),
	}
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, backend, rec)

	_, err := o.Run(context.Background(), testRequest(digest))
	require.Error(t, err)
	assert.Zero(t, fetcher.calls, "download must not start when the probe fails")

	terms := terminalEvents(rec.events)
	require.Len(t, terms, 3)
	probe := terms[1]
	assert.Equal(t, StepDeviceProbe, probe.Step)
	require.NotNil(t, probe.Error)
	assert.Equal(t, CodeProbeFailed, probe.Error.Code)
	assert.Equal(t, "scheduler is not running", probe.Error.Stderr)

	last := terms[2]
	assert.Equal(t, StepJobFailed, last.Step)
	assert.Equal(t, CodeProbeFailed, last.Error.Code)
}

func TestOrchestrator_InvalidRequest(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{"driver.ppd": "ppd"})
	fetcher := &fakeFetcher{path: payload}
	backend := newFakeBackend()
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, backend, rec)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"short uuid", func(r *Request) { r.DriverUUID = "ab" }},
		{"bad digest", func(r *Request) { r.PayloadSHA256 = "nothex" }},
		{"bad url", func(r *Request) { r.PayloadURL = "ftp://example.com/x.zip" }},
		{"definition escapes store", func(r *Request) { r.DefinitionFile = "../driver.ppd" }},
		{"nested without subdir", func(r *Request) { r.Layout = driverstore.LayoutNested }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.events = nil
			backend.calls = nil
			req := testRequest(digest)
			tt.mutate(&req)

			_, err := o.Run(context.Background(), req)
			require.Error(t, err)
			assert.Empty(t, backend.calls)

			terms := terminalEvents(rec.events)
			require.Len(t, terms, 2)
			assert.Equal(t, StepJobInit, terms[0].Step)
			assert.Equal(t, CodeInvalidInput, terms[0].Error.Code)
		})
	}
}

func TestOrchestrator_ModeOnJobInit(t *testing.T) {
	payload, digest := buildPayload(t, map[string]string{"driver.ppd": "ppd"})
	fetcher := &fakeFetcher{path: payload}
	rec := &recordEmitter{}
	o, _ := newTestOrchestrator(t, fetcher, newFakeBackend(), rec)

	req := testRequest(digest)
	req.Mode = ModeReinstall
	_, err := o.Run(context.Background(), req)
	require.NoError(t, err)

	require.NotEmpty(t, rec.events)
	first := rec.events[0]
	assert.Equal(t, StepJobInit, first.Step)
	assert.Equal(t, ModeReinstall, first.Mode)
}
