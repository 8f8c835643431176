package handlers

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/stacman/stacman/internal/errors"
	"github.com/stacman/stacman/internal/metrics"
)

// Check and aggregate statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the body of a passing probe.
type HealthResponse struct {
	Status    string            `json:"status"`
	Probe     string            `json:"probe"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// HealthChecker reports whether one gateway dependency is usable.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

type probe struct {
	name    string
	timeout time.Duration
	// runChecks is false for liveness: the process answering is enough.
	runChecks bool
	verbose   bool
}

var (
	aggregateProbe = probe{name: "aggregate", timeout: 5 * time.Second, runChecks: true, verbose: true}
	liveProbe      = probe{name: "live", timeout: 2 * time.Second}
	readyProbe     = probe{name: "ready", timeout: 5 * time.Second, runChecks: true}
	startupProbe   = probe{name: "startup", timeout: 3 * time.Second, runChecks: true}
)

// HealthManager runs registered checkers for the gateway's probes.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds or replaces the checker for name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks runs every checker concurrently. A checker still running
// when ctx expires is reported as a timeout.
func (hm *HealthManager) runHealthChecks(ctx context.Context) (statuses, failures map[string]string) {
	hm.mu.RLock()
	checkers := maps.Clone(hm.checkers)
	hm.mu.RUnlock()

	statuses = make(map[string]string, len(checkers))
	failures = make(map[string]string)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, checker := range checkers {
		wg.Go(func() {
			start := time.Now()
			status, err := runCheck(ctx, checker)
			metrics.RecordHealthCheck(name, status == StatusHealthy, time.Since(start))

			mu.Lock()
			defer mu.Unlock()
			statuses[name] = status
			if err != nil {
				failures[name] = err.Error()
			}
		})
	}
	wg.Wait()

	return statuses, failures
}

func runCheck(ctx context.Context, checker HealthChecker) (string, error) {
	done := make(chan error, 1)
	go func() { done <- checker.CheckHealth(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return StatusUnhealthy, err
		}
		return StatusHealthy, nil
	case <-ctx.Done():
		return StatusTimeout, ctx.Err()
	}
}

// overallStatus folds check statuses: any failure is unhealthy, any timeout
// degrades.
func overallStatus(statuses map[string]string) string {
	status := StatusHealthy
	for _, s := range statuses {
		switch s {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusTimeout, StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) serve(w http.ResponseWriter, r *http.Request, p probe) {
	response := HealthResponse{
		Status:    StatusHealthy,
		Probe:     p.name,
		Timestamp: time.Now().UTC(),
	}

	if p.runChecks {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()

		statuses, failures := hm.runHealthChecks(ctx)
		response.Status = overallStatus(statuses)
		if response.Status == StatusUnhealthy {
			respondWithError(w, r, probeFailure(p.name, response.Status, statuses, failures))
			return
		}
		if p.verbose {
			response.Checks = statuses
		}
		if len(failures) > 0 {
			response.Failures = failures
		}
	}
	if p.verbose {
		response.Version = hm.version
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, aggregateProbe)
}

func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, liveProbe)
}

// ReadinessHandler fails while a dependency, such as a dispatch backlog the
// throttle cannot drain, makes the gateway unfit for traffic.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, readyProbe)
}

func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, startupProbe)
}

func probeFailure(probeName, status string, statuses, failures map[string]string) error {
	envelope := apperrors.NewServiceUnavailableError(probeName + " probe failed")

	details := map[string]interface{}{
		"probe":  probeName,
		"status": status,
	}
	if len(statuses) > 0 {
		details["checks"] = statuses
	}
	if len(failures) > 0 {
		details["failures"] = failures
	}
	envelope = envelope.WithDetails(details)

	var failing []string
	for name, s := range statuses {
		if s != StatusHealthy {
			failing = append(failing, name)
		}
	}
	envelope, _ = envelope.WithContext(map[string]interface{}{
		"probe":            probeName,
		"unhealthy_checks": failing,
	})
	return envelope
}

var (
	globalMu            sync.RWMutex
	globalHealthManager *HealthManager
)

// InitHealthManager replaces the manager behind the package level handlers.
func InitHealthManager(version string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the manager installed by InitHealthManager.
func GetHealthManager() *HealthManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalHealthManager
}

func globalHandler(p probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := GetHealthManager(); hm != nil {
			hm.serve(w, r, p)
			return
		}
		respondWithError(w, r, probeFailure(p.name, "unknown", nil, nil))
	}
}

// Package level probes backed by the global manager.
var (
	HealthHandler    = globalHandler(aggregateProbe)
	LivenessHandler  = globalHandler(liveProbe)
	ReadinessHandler = globalHandler(readyProbe)
	StartupHandler   = globalHandler(startupProbe)
)
