//go:build integration

package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/spoolsmith/spoolsmith/internal/driverstore"
	"github.com/spoolsmith/spoolsmith/internal/fetch"
	"github.com/spoolsmith/spoolsmith/internal/install"
	"github.com/spoolsmith/spoolsmith/internal/platform/driverops"
)

// scriptedBackend is a Backend whose operations succeed unless a specific
// failure is scripted, recording the call order.
type scriptedBackend struct {
	calls    []string
	probeErr error
	queueErr error
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Probe(_ context.Context, _ driverops.Device) error {
	b.calls = append(b.calls, "Probe")
	return b.probeErr
}

func (b *scriptedBackend) StageDriver(_ context.Context, defPath string) (driverops.StagedDriver, error) {
	b.calls = append(b.calls, "StageDriver")
	if _, err := os.Stat(defPath); err != nil {
		return driverops.StagedDriver{}, err
	}
	return driverops.StagedDriver{PublishedID: "scripted/" + filepath.Base(defPath)}, nil
}

func (b *scriptedBackend) RegisterDriver(_ context.Context, _ string, _ driverops.StagedDriver) error {
	b.calls = append(b.calls, "RegisterDriver")
	return nil
}

func (b *scriptedBackend) EnsurePort(_ context.Context, _ string, dev driverops.Device) (string, error) {
	b.calls = append(b.calls, "EnsurePort")
	return "socket://" + dev.Host + ":9100", nil
}

func (b *scriptedBackend) EnsureQueue(_ context.Context, _, _, _ string) error {
	b.calls = append(b.calls, "EnsureQueue")
	return b.queueErr
}

func (b *scriptedBackend) VerifyQueue(_ context.Context, _, _ string) error {
	b.calls = append(b.calls, "VerifyQueue")
	return nil
}

func buildZip(entries map[string]string) ([]byte, string) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:])
}

var _ = Describe("Install pipeline", func() {
	var (
		storeRoot string
		store     *driverstore.Store
		server    *httptest.Server
		payload   []byte
		digest    string
		requests  int
		backend   *scriptedBackend
		events    []install.Event
	)

	newRequest := func() install.Request {
		return install.Request{
			DeviceName:     "lobby-printer",
			DeviceAddr:     "192.168.10.40",
			DriverUUID:     "acme_laser-mk3",
			PayloadURL:     server.URL + "/mk3.zip",
			PayloadSHA256:  digest,
			DefinitionFile: "driver.ppd",
		}
	}

	run := func(req install.Request) error {
		bus := install.NewBus(logr.Discard())
		ch, cancel := bus.Subscribe()

		fetcher := fetch.New(store, fetch.WithRetryBudget(1, 10*time.Millisecond))
		orch := install.NewOrchestrator(store, fetcher, backend, bus, logr.Discard())

		done := make(chan error, 1)
		go func() {
			_, err := orch.Run(context.Background(), req)
			cancel()
			done <- err
		}()

		for e := range ch {
			events = append(events, e)
		}
		return <-done
	}

	terminalStates := func() map[install.StepID]install.State {
		states := map[install.StepID]install.State{}
		for _, e := range events {
			if e.State.Terminal() {
				states[e.Step] = e.State
			}
		}
		return states
	}

	BeforeEach(func() {
		storeRoot = GinkgoT().TempDir()
		store = driverstore.New(storeRoot)
		backend = &scriptedBackend{}
		events = nil
		requests = 0

		payload, digest = buildZip(map[string]string{
			"driver.ppd": "*PPD-Adobe: \"4.3\"\n",
			"data/extra": "supporting file\n",
		})
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++
			_, _ = w.Write(payload)
		}))
		DeferCleanup(server.Close)
	})

	It("installs a device end to end", func() {
		Expect(run(newRequest())).To(Succeed())

		By("reporting every step successful")
		states := terminalStates()
		Expect(states[install.StepJobDone]).To(Equal(install.StateSuccess))
		Expect(states[install.StepDriverDownload]).To(Equal(install.StateSuccess))
		Expect(states[install.StepDriverExtract]).To(Equal(install.StateSuccess))
		Expect(states).NotTo(HaveKey(install.StepJobFailed))

		By("running the backend operations in pipeline order")
		Expect(backend.calls).To(Equal([]string{
			"Probe", "StageDriver", "RegisterDriver",
			"EnsurePort", "EnsureQueue", "VerifyQueue",
		}))

		By("caching the payload under its content address")
		address, err := driverstore.ContentAddress(digest)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(storeRoot, address, "payload", "payload.zip")).To(BeAnExistingFile())

		By("materializing the definition at the store root")
		Expect(filepath.Join(storeRoot, "driver.ppd")).To(BeAnExistingFile())

		By("cleaning up the staging directory")
		staging := filepath.Join(storeRoot, "acme_laser-mk3", "_staging")
		Expect(staging).NotTo(BeADirectory())
	})

	It("serves the second install from cache", func() {
		Expect(run(newRequest())).To(Succeed())
		firstRequests := requests

		events = nil
		backend = &scriptedBackend{}
		Expect(run(newRequest())).To(Succeed())

		Expect(requests).To(Equal(firstRequests), "cache hit must not hit the network")

		states := terminalStates()
		Expect(states[install.StepDriverDownload]).To(Equal(install.StateSkipped))
		Expect(states[install.StepJobDone]).To(Equal(install.StateSuccess))
	})

	It("fails the job on a digest mismatch without touching the device", func() {
		req := newRequest()
		req.PayloadSHA256 = "deadbeef" + digest[8:]

		Expect(run(req)).NotTo(Succeed())

		states := terminalStates()
		Expect(states[install.StepDriverDownload]).To(Equal(install.StateFailed))
		Expect(states[install.StepJobFailed]).To(Equal(install.StateFailed))

		var failed install.Event
		for _, e := range events {
			if e.Step == install.StepJobFailed {
				failed = e
			}
		}
		Expect(failed.Error).NotTo(BeNil())
		Expect(failed.Error.Code).To(Equal(install.CodeDigestMismatch))

		Expect(backend.calls).To(Equal([]string{"Probe"}))
	})

	It("rejects a payload with a traversal entry", func() {
		payload, digest = buildZip(map[string]string{
			"../evil.ppd": "break out\n",
		})

		Expect(run(newRequest())).NotTo(Succeed())

		states := terminalStates()
		Expect(states[install.StepDriverExtract]).To(Equal(install.StateFailed))

		var failed install.Event
		for _, e := range events {
			if e.Step == install.StepJobFailed {
				failed = e
			}
		}
		Expect(failed.Error).NotTo(BeNil())
		Expect(failed.Error.Code).To(Equal(install.CodePathTraversal))

		Expect(filepath.Join(storeRoot, "..", "evil.ppd")).NotTo(BeAnExistingFile())
	})

	It("stops before downloading when the device probe fails", func() {
		backend.probeErr = errors.New("connection refused")

		Expect(run(newRequest())).NotTo(Succeed())

		Expect(requests).To(BeZero(), "probe failure must short-circuit the download")

		states := terminalStates()
		Expect(states[install.StepDeviceProbe]).To(Equal(install.StateFailed))
		Expect(states[install.StepJobFailed]).To(Equal(install.StateFailed))
	})
})
