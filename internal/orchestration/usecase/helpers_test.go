package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/connector"
	"github.com/dsorch/orchestrator/internal/httpclient"
	"github.com/dsorch/orchestrator/internal/orchestration/repository"
	"github.com/dsorch/orchestrator/internal/storage"
)

const testManagementPath = "/consumer/cp/api/management/v3"

// connectorDouble serves the connector management API and a provider data plane.
// Each handler defaults to a successful answer and may be replaced per test.
type connectorDouble struct {
	server *httptest.Server

	mu           sync.Mutex
	initiate     http.HandlerFunc
	dataAddress  func(w http.ResponseWriter, r *http.Request, attempt int)
	download     http.HandlerFunc
	initiateBody []string

	initiateCalls    atomic.Int32
	dataAddressCalls atomic.Int32
	downloadCalls    atomic.Int32
	transferCalls    atomic.Int32
}

func newConnectorDouble(t *testing.T) *connectorDouble {
	t.Helper()

	d := &connectorDouble{}
	d.initiate = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"@id":"t1"}`))
	}
	d.dataAddress = func(w http.ResponseWriter, r *http.Request, attempt int) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authorization":"tok","endpoint":"` + d.server.URL + `/public"}`))
	}
	d.download = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"v":1}`))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+testManagementPath+"/transferprocesses", func(w http.ResponseWriter, r *http.Request) {
		d.initiateCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		d.mu.Lock()
		d.initiateBody = append(d.initiateBody, string(body))
		handler := d.initiate
		d.mu.Unlock()
		handler(w, r)
	})
	mux.HandleFunc("GET "+testManagementPath+"/edrs/{id}/dataaddress", func(w http.ResponseWriter, r *http.Request) {
		attempt := int(d.dataAddressCalls.Add(1))
		d.mu.Lock()
		handler := d.dataAddress
		d.mu.Unlock()
		handler(w, r, attempt)
	})
	mux.HandleFunc("GET "+testManagementPath+"/transferprocesses/{id}", func(w http.ResponseWriter, r *http.Request) {
		d.transferCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"@id":"` + r.PathValue("id") + `","state":"STARTED"}`))
	})
	mux.HandleFunc("GET /public", func(w http.ResponseWriter, r *http.Request) {
		d.downloadCalls.Add(1)
		d.mu.Lock()
		handler := d.download
		d.mu.Unlock()
		handler(w, r)
	})

	d.server = httptest.NewServer(mux)
	t.Cleanup(d.server.Close)
	return d
}

func (d *connectorDouble) onInitiate(handler http.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initiate = handler
}

func (d *connectorDouble) onDataAddress(handler func(w http.ResponseWriter, r *http.Request, attempt int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dataAddress = handler
}

func (d *connectorDouble) onDownload(handler http.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.download = handler
}

func (d *connectorDouble) host() string {
	return strings.TrimPrefix(d.server.URL, "http://")
}

func (d *connectorDouble) client() *connector.Client {
	return connector.NewClient(
		httpclient.New(time.Second),
		d.server.URL+testManagementPath,
		testManagementPath,
		"edc-key",
	)
}

func (d *connectorDouble) initiateBodies() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.initiateBody...)
}

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type transferFixture struct {
	double  *connectorDouble
	repo    *repository.MemoryProcessRepository
	store   *storage.FileStore
	sleeper *sleepRecorder
	useCase TransferUseCase
}

func newTransferFixture(t *testing.T, cfg TransferConfig) *transferFixture {
	t.Helper()

	double := newConnectorDouble(t)
	repo := repository.NewMemoryProcessRepository(clock.SystemClock{})
	store, err := storage.NewFileStore(t.TempDir(), clock.SystemClock{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sleeper := &sleepRecorder{}
	useCase := NewTransferUseCase(
		repo,
		double.client(),
		store,
		clock.SystemClock{},
		cfg,
		discardLogger(),
		WithSleep(sleeper.sleep),
	)

	return &transferFixture{
		double:  double,
		repo:    repo,
		store:   store,
		sleeper: sleeper,
		useCase: useCase,
	}
}

func defaultTransferConfig() TransferConfig {
	return TransferConfig{
		DefaultConnectorID: "did:web:default",
		EDRMaxRetries:      5,
		EDRRetryDelay:      2 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
