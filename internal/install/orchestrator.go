package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/spoolsmith/spoolsmith/internal/archive"
	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/execute"
	"github.com/spoolsmith/spoolsmith/internal/fetch"
	"github.com/spoolsmith/spoolsmith/internal/integrity"
	"github.com/spoolsmith/spoolsmith/internal/metrics"
	"github.com/spoolsmith/spoolsmith/internal/platform/driverops"
	"github.com/spoolsmith/spoolsmith/internal/util/naming"
)

// PayloadFetcher obtains a verified local payload file for a URL. Satisfied
// by fetch.Fetcher; tests substitute fakes.
type PayloadFetcher interface {
	Fetch(ctx context.Context, rawURL, expectedDigest string, progress fetch.ProgressFunc) (fetch.Result, error)
}

// Request describes one install job. Zero values for QueueName, PortName,
// DriverName and JobID are filled in from the device attributes before the
// job starts.
type Request struct {
	JobID      string
	DeviceName string
	DeviceAddr string
	DevicePort int
	DeviceURI  string

	DriverUUID    string
	PayloadURL    string
	PayloadSHA256 string

	// Layout and LayoutSubdir locate the driver root inside the extracted
	// tree. DefinitionFile is the driver definition (INF or PPD) relative
	// to the materialized driver store root.
	Layout         driverstore.Layout
	LayoutSubdir   string
	DefinitionFile string

	Mode       Mode
	QueueName  string
	PortName   string
	DriverName string

	// KeepStaging leaves the run's staging directory behind after a
	// successful promote, for inspection.
	KeepStaging bool
}

func (r *Request) applyDefaults() {
	if r.JobID == "" {
		r.JobID = naming.Job(r.DeviceName, driverstore.NewRunID())
	}
	if r.Mode == "" {
		r.Mode = ModeInstall
	}
	if r.Layout == "" {
		r.Layout = driverstore.LayoutFlat
	}
	if r.QueueName == "" {
		r.QueueName = naming.Queue(r.DeviceName)
	}
	if r.PortName == "" {
		r.PortName = naming.Port(r.DeviceAddr)
	}
	if r.DriverName == "" {
		r.DriverName = naming.Driver(r.DriverUUID)
	}
}

func (r *Request) validate() error {
	if r.DeviceName == "" {
		return fmt.Errorf("device name is required")
	}
	if r.DeviceAddr == "" {
		return fmt.Errorf("device address is required")
	}
	if err := driverstore.ValidateDriverUUID(r.DriverUUID); err != nil {
		return err
	}
	if err := driverstore.ValidateDigest(r.PayloadSHA256); err != nil {
		return err
	}
	if _, err := fetch.ValidateURL(r.PayloadURL); err != nil {
		return err
	}
	if r.DefinitionFile == "" {
		return fmt.Errorf("definition file is required")
	}
	if !filepath.IsLocal(filepath.FromSlash(r.DefinitionFile)) {
		return fmt.Errorf("definition file %q must stay inside the driver store", r.DefinitionFile)
	}
	if r.Layout == driverstore.LayoutNested && r.LayoutSubdir == "" {
		return fmt.Errorf("nested layout requires a subdirectory name")
	}
	switch r.Mode {
	case ModeInstall, ModeReinstall:
	default:
		return fmt.Errorf("unknown install mode %q", r.Mode)
	}
	return nil
}

// Result summarizes a completed install job.
type Result struct {
	JobID       string
	FromCache   bool
	PayloadPath string
	Extracted   int
	Promoted    int
	Staged      driverops.StagedDriver
	PortID      string
	QueueName   string
	Duration    time.Duration
}

// Orchestrator runs install jobs step by step, reporting every transition
// through the emitter. A step failure stops the job; later steps never run
// and the stream closes with a single job.failed event.
type Orchestrator struct {
	store   *driverstore.Store
	fetcher PayloadFetcher
	backend driverops.Backend
	emitter Emitter
	log     logr.Logger

	keepStaging bool
}

// OrchestratorOption customizes a new Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithKeepStaging preserves staging directories after extraction, whether
// the run succeeds or fails, for all jobs the orchestrator runs.
func WithKeepStaging(keep bool) OrchestratorOption {
	return func(o *Orchestrator) { o.keepStaging = keep }
}

// NewOrchestrator wires an orchestrator around the given store, fetcher and
// OS backend.
func NewOrchestrator(store *driverstore.Store, fetcher PayloadFetcher, backend driverops.Backend, emitter Emitter, log logr.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		fetcher: fetcher,
		backend: backend,
		emitter: emitter,
		log:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the full install sequence for one device. The returned error
// is the first step failure; the event stream carries the same information
// with a machine-stable code.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	req.applyDefaults()
	start := time.Now()
	res := Result{JobID: req.JobID, QueueName: req.QueueName}

	err := o.runJob(ctx, req, &res)
	res.Duration = time.Since(start)

	if err != nil {
		o.failJob(req, err)
		metrics.JobsTotal.WithLabelValues("failure").Inc()
		return res, err
	}

	o.step(req, StepJobDone, func(r *StepReporter) error {
		r.Success(fmt.Sprintf("queue %s ready", req.QueueName))
		return nil
	})
	metrics.JobsTotal.WithLabelValues("success").Inc()
	o.log.Info("install job complete",
		"job", req.JobID, "device", req.DeviceName, "queue", req.QueueName,
		"fromCache", res.FromCache, "duration", res.Duration)
	return res, nil
}

func (o *Orchestrator) runJob(ctx context.Context, req Request, res *Result) error {
	if err := o.stepInit(req); err != nil {
		return err
	}
	if err := o.stepProbe(ctx, req); err != nil {
		return err
	}
	if err := o.stepDownload(ctx, req, res); err != nil {
		return err
	}
	if err := o.stepVerify(req, res); err != nil {
		return err
	}
	if err := o.stepExtract(ctx, req, res); err != nil {
		return err
	}
	if err := o.stepStage(ctx, req, res); err != nil {
		return err
	}
	if err := o.stepRegister(ctx, req, res); err != nil {
		return err
	}
	if err := o.stepEnsurePort(ctx, req, res); err != nil {
		return err
	}
	if err := o.stepEnsureQueue(ctx, req, res); err != nil {
		return err
	}
	return o.stepFinalVerify(ctx, req)
}

// step runs fn inside a reporter for stepID. fn owns the terminal call; the
// deferred Close catches abandoned steps and the duration is observed under
// whatever terminal state the step reached.
func (o *Orchestrator) step(req Request, stepID StepID, fn func(*StepReporter) error) error {
	start := time.Now()
	var r *StepReporter
	if stepID == StepJobInit {
		r = NewStepReporterWithMode(o.emitter, req.JobID, req.DeviceName, stepID, req.Mode)
	} else {
		r = NewStepReporter(o.emitter, req.JobID, req.DeviceName, stepID)
	}
	defer func() {
		r.Close()
		metrics.ObserveStep(string(stepID), string(r.FinalState()), time.Since(start))
	}()
	return fn(r)
}

func (o *Orchestrator) stepInit(req Request) error {
	return o.step(req, StepJobInit, func(r *StepReporter) error {
		if err := req.validate(); err != nil {
			return fail(r, CodeInvalidInput, err)
		}
		if err := o.store.EnsureRoot(); err != nil {
			return fail(r, CodeInvalidInput, err)
		}
		r.Success(fmt.Sprintf("installing %s on %s", req.DriverUUID, req.DeviceName))
		return nil
	})
}

func (o *Orchestrator) stepProbe(ctx context.Context, req Request) error {
	return o.step(req, StepDeviceProbe, func(r *StepReporter) error {
		dev := o.device(req)
		if err := o.backend.Probe(ctx, dev); err != nil {
			return failWithEvidence(r, CodeProbeFailed, err)
		}
		r.Success(fmt.Sprintf("device %s reachable", req.DeviceAddr))
		return nil
	})
}

func (o *Orchestrator) stepDownload(ctx context.Context, req Request, res *Result) error {
	return o.step(req, StepDriverDownload, func(r *StepReporter) error {
		progress := func(written, total int64, percent float64) {
			r.Progress(written, total, "bytes", percent, "downloading payload")
		}
		fr, err := o.fetcher.Fetch(ctx, req.PayloadURL, req.PayloadSHA256, progress)
		if err != nil {
			return fail(r, downloadCode(err), err)
		}
		res.PayloadPath = fr.Path
		res.FromCache = fr.FromCache
		if fr.FromCache {
			r.Skipped("payload already cached and verified")
			return nil
		}
		r.Success(fmt.Sprintf("downloaded %d bytes", fr.BytesWritten))
		return nil
	})
}

func (o *Orchestrator) stepVerify(req Request, res *Result) error {
	return o.step(req, StepDriverVerify, func(r *StepReporter) error {
		if err := integrity.VerifyFile(res.PayloadPath, req.PayloadSHA256); err != nil {
			code := CodeDigestMismatch
			if !errors.Is(err, integrity.ErrDigestMismatch) {
				code = CodeDownloadFailed
			}
			return fail(r, code, err)
		}
		r.Success("payload digest verified")
		return nil
	})
}

func (o *Orchestrator) stepExtract(ctx context.Context, req Request, res *Result) error {
	return o.step(req, StepDriverExtract, func(r *StepReporter) error {
		runID := driverstore.NewRunID()
		staging, err := o.store.StagingDir(req.DriverUUID, runID)
		if err != nil {
			return fail(r, CodeInvalidInput, err)
		}

		// Staging is ephemeral. Promote removes it on success; this covers
		// failed extractions and failed promotions.
		keep := req.KeepStaging || o.keepStaging
		defer func() {
			if keep {
				if _, statErr := os.Stat(staging); statErr == nil {
					o.log.Info("keeping staging directory", "job", req.JobID, "path", staging)
				}
				return
			}
			if rmErr := os.RemoveAll(staging); rmErr != nil {
				o.log.Error(rmErr, "removing staging directory", "job", req.JobID, "path", staging)
				return
			}
			_ = os.Remove(filepath.Dir(staging))
		}()

		var cancelFlag atomic.Bool
		stop := context.AfterFunc(ctx, func() { cancelFlag.Store(true) })
		defer stop()

		stats, err := archive.Extract(res.PayloadPath, staging, archive.Options{
			Cancel: &cancelFlag,
			Progress: func(done, total int) {
				pct := 0.0
				if total > 0 {
					pct = float64(done) / float64(total) * 100
				}
				r.Progress(int64(done), int64(total), "entries", pct, "extracting payload")
			},
		})
		if err != nil {
			return fail(r, extractCode(err), err)
		}

		promoted, err := o.store.Promote(req.DriverUUID, runID, keep)
		if err != nil {
			return fail(r, CodeExtractFailed, err)
		}
		metrics.ExtractedBytesTotal.Add(float64(stats.BytesWritten))
		res.Extracted = stats.Files
		res.Promoted = promoted
		r.Success(fmt.Sprintf("extracted %d files (%d bytes)", stats.Files, stats.BytesWritten))
		return nil
	})
}

func (o *Orchestrator) stepStage(ctx context.Context, req Request, res *Result) error {
	return o.step(req, StepDriverStage, func(r *StepReporter) error {
		extracted, err := o.store.ExtractedDir(req.DriverUUID)
		if err != nil {
			return fail(r, CodeInvalidInput, err)
		}
		if _, err := o.store.Materialize(extracted, req.Layout, req.LayoutSubdir); err != nil {
			return fail(r, CodeMaterializeFailed, err)
		}

		defPath := filepath.Join(o.store.Root(), filepath.FromSlash(req.DefinitionFile))
		staged, err := o.backend.StageDriver(ctx, defPath)
		if err != nil {
			code := CodeStageFailed
			if errors.Is(err, driverops.ErrStageInconsistent) {
				code = CodeStageInconsistent
			}
			return failWithEvidence(r, code, err)
		}
		res.Staged = staged
		for _, ev := range staged.Evidence {
			o.log.V(1).Info("driver staging evidence", "job", req.JobID, "evidence", ev)
		}
		r.Success("driver staged as " + staged.PublishedID)
		return nil
	})
}

func (o *Orchestrator) stepRegister(ctx context.Context, req Request, res *Result) error {
	return o.step(req, StepDriverRegister, func(r *StepReporter) error {
		if err := o.backend.RegisterDriver(ctx, req.DriverName, res.Staged); err != nil {
			return failWithEvidence(r, CodeRegisterFailed, err)
		}
		r.Success("driver registered as " + req.DriverName)
		return nil
	})
}

func (o *Orchestrator) stepEnsurePort(ctx context.Context, req Request, res *Result) error {
	return o.step(req, StepEnsurePort, func(r *StepReporter) error {
		portID, err := o.backend.EnsurePort(ctx, req.PortName, o.device(req))
		if err != nil {
			return failWithEvidence(r, CodePortBindingFailed, err)
		}
		res.PortID = portID
		r.Success("port bound: " + portID)
		return nil
	})
}

func (o *Orchestrator) stepEnsureQueue(ctx context.Context, req Request, res *Result) error {
	return o.step(req, StepEnsureQueue, func(r *StepReporter) error {
		driverRef := res.Staged.PublishedID
		if err := o.backend.EnsureQueue(ctx, req.QueueName, res.PortID, driverRef); err != nil {
			return failWithEvidence(r, CodeQueueBindingFailed, err)
		}
		r.Success("queue bound: " + req.QueueName)
		return nil
	})
}

func (o *Orchestrator) stepFinalVerify(ctx context.Context, req Request) error {
	return o.step(req, StepFinalVerify, func(r *StepReporter) error {
		if err := o.backend.VerifyQueue(ctx, req.QueueName, req.DriverName); err != nil {
			return failWithEvidence(r, CodeVerifyQueueFailed, err)
		}
		r.Success("queue verified")
		return nil
	})
}

// failJob closes the event stream with the single job.failed event.
func (o *Orchestrator) failJob(req Request, cause error) {
	o.step(req, StepJobFailed, func(r *StepReporter) error {
		code, stdout, stderr := failureDetails(cause)
		r.Failed(code, cause, stdout, stderr)
		return nil
	})
	o.log.Error(cause, "install job failed", "job", req.JobID, "device", req.DeviceName)
}

func (o *Orchestrator) device(req Request) driverops.Device {
	return driverops.Device{
		Name: req.DeviceName,
		Host: req.DeviceAddr,
		Port: req.DevicePort,
		URI:  req.DeviceURI,
	}
}

// codedError pins the machine-stable code a step failed with, so the
// closing job.failed event carries the same code as the failing step.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// fail terminates the step with code and returns an error that remembers it.
func fail(r *StepReporter, code string, err error) error {
	r.Failed(code, err, "", "")
	return &codedError{code: code, err: err}
}

// failWithEvidence is fail with captured process output attached when the
// failure came from an external command.
func failWithEvidence(r *StepReporter, code string, err error) error {
	var stdout, stderr string
	var cmdErr *execute.CommandError
	if errors.As(err, &cmdErr) {
		stdout = cmdErr.Result.Stdout
		stderr = cmdErr.Result.Stderr
	}
	r.Failed(code, err, stdout, stderr)
	return &codedError{code: code, err: err}
}

// failureDetails recovers the step's code and evidence from the error chain
// for the closing job.failed event.
func failureDetails(err error) (code, stdout, stderr string) {
	code = CodeInvalidInput
	var ce *codedError
	if errors.As(err, &ce) {
		code = ce.code
	}
	var cmdErr *execute.CommandError
	if errors.As(err, &cmdErr) {
		stdout = cmdErr.Result.Stdout
		stderr = cmdErr.Result.Stderr
	}
	return code, stdout, stderr
}

func downloadCode(err error) string {
	switch {
	case errors.Is(err, fetch.ErrInvalidURL),
		errors.Is(err, driverstore.ErrInvalidDigest):
		return CodeInvalidInput
	case errors.Is(err, integrity.ErrDigestMismatch):
		return CodeDigestMismatch
	case errors.Is(err, fetch.ErrEmptyBody):
		return CodeEmptyBody
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled
	case errors.Is(err, fetch.ErrHTTPStatus):
		return CodeNetworkError
	default:
		return CodeDownloadFailed
	}
}

func extractCode(err error) string {
	switch {
	case errors.Is(err, archive.ErrPathTraversal):
		return CodePathTraversal
	case errors.Is(err, archive.ErrCancelled):
		return CodeCancelled
	default:
		return CodeExtractFailed
	}
}

