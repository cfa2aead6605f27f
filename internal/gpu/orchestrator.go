package gpu

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// DefaultProbeTimeout bounds a single backend attempt.
const DefaultProbeTimeout = 5 * time.Second

// Detector is the detection surface consumed by the command boundary.
type Detector interface {
	// DetectGPU returns the host accelerator, the cached result, a test
	// fixture, or the no-accelerator record. It only fails while error
	// simulation is on or when ctx ends first.
	DetectGPU(ctx context.Context) (*CapabilityRecord, error)

	// Invalidate forgets the cached result so the next call probes again.
	Invalidate()
}

// Attempt records the outcome of one backend probe within a detection.
type Attempt struct {
	Backend  string
	Duration time.Duration
	Err      error
}

// Orchestrator runs the backends in priority order under a per-backend
// timeout and caches the first success.
type Orchestrator struct {
	backends     []Backend
	modes        *Modes
	cache        *ResultCache
	logger       logging.Logger
	probeTimeout time.Duration
	singleFlight bool
	group        singleflight.Group
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithBackends sets the backends in priority order.
func WithBackends(backends ...Backend) OrchestratorOption {
	return func(o *Orchestrator) {
		o.backends = append([]Backend(nil), backends...)
	}
}

// WithModes shares a mode controller with the orchestrator.
func WithModes(modes *Modes) OrchestratorOption {
	return func(o *Orchestrator) {
		o.modes = modes
	}
}

// WithCache shares a result cache with the orchestrator.
func WithCache(cache *ResultCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProbeTimeout sets the per-backend timeout.
func WithProbeTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.probeTimeout = timeout
	}
}

// WithSingleFlight makes concurrent cache misses share one probe chain.
func WithSingleFlight(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.singleFlight = enabled
	}
}

// NewOrchestrator creates a GPU detection orchestrator with the given options.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.modes == nil {
		o.modes = NewModes(o.logger)
	}
	if o.cache == nil {
		o.cache = NewResultCache()
	}
	if o.probeTimeout <= 0 {
		o.probeTimeout = DefaultProbeTimeout
	}
	return o
}

// Modes returns the mode controller consulted by every detection.
func (o *Orchestrator) Modes() *Modes {
	return o.modes
}

// BackendNames returns the backend names in priority order.
func (o *Orchestrator) BackendNames() []string {
	names := make([]string, len(o.backends))
	for i, b := range o.backends {
		names[i] = b.Name()
	}
	return names
}

// Invalidate implements Detector.
func (o *Orchestrator) Invalidate() {
	o.cache.Clear()
	o.logger.Debug("detection cache cleared")
}

// DetectGPU implements Detector.
//
// Error simulation wins over everything. Test mode serves the fixture for
// the simulated backend without touching the cache or any process. Real
// detection serves the cache when populated and otherwise probes. If ctx
// ends first DetectGPU returns early while the probes keep running and
// still fill the cache.
func (o *Orchestrator) DetectGPU(ctx context.Context) (*CapabilityRecord, error) {
	const op = "gpu.DetectGPU"

	state := o.modes.Snapshot()
	if state.ErrorSimulation {
		return nil, errors.New(errors.SimulatedFailure, errors.ErrSimulated.Message).WithOp(op)
	}
	if state.TestMode {
		return Fixture(state.SimulatedBackend), nil
	}

	if rec, ok := o.cache.Get(); ok {
		o.logger.Debug("detection served from cache", "vendor", rec.Vendor)
		return rec, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.Cancelled, "detection abandoned before start", err).WithOp(op)
	}

	// Probes outlive the caller so a late result still reaches the cache.
	probeCtx := context.WithoutCancel(ctx)

	var done <-chan *CapabilityRecord
	if o.singleFlight {
		ch := o.group.DoChan("detect", func() (interface{}, error) {
			return o.probeAll(probeCtx), nil
		})
		out := make(chan *CapabilityRecord, 1)
		go func() {
			res := <-ch
			out <- res.Val.(*CapabilityRecord)
		}()
		done = out
	} else {
		out := make(chan *CapabilityRecord, 1)
		go func() {
			out <- o.probeAll(probeCtx)
		}()
		done = out
	}

	select {
	case rec := <-done:
		// Shared single-flight results must not alias between callers.
		return rec.Clone(), nil
	case <-ctx.Done():
		return nil, errors.Wrap(errors.Cancelled, "detection abandoned by caller", ctx.Err()).WithOp(op)
	}
}

// probeAll tries each backend once in order. It never fails: exhausting
// the list yields the uncached no-accelerator record.
func (o *Orchestrator) probeAll(ctx context.Context) *CapabilityRecord {
	attempts := make([]Attempt, 0, len(o.backends))
	for _, b := range o.backends {
		start := time.Now()
		rec, err := o.runProbe(ctx, b)
		attempt := Attempt{Backend: b.Name(), Duration: time.Since(start), Err: err}
		attempts = append(attempts, attempt)

		if err != nil {
			o.logger.Warn("backend probe failed",
				"backend", attempt.Backend,
				"code", errors.GetCode(err),
				"duration", attempt.Duration,
				"error", err,
			)
			continue
		}

		o.cache.Set(rec)
		o.logger.Info("accelerator detected",
			"backend", attempt.Backend,
			"vendor", rec.Vendor,
			"memory_total_mb", rec.MemoryTotalMB,
			"attempts", len(attempts),
		)
		return rec
	}

	o.logger.Info("no accelerator found", "attempts", len(attempts))
	return NoAccelerator()
}

type probeResult struct {
	rec *CapabilityRecord
	err error
}

// runProbe races one backend against the probe timeout. Cancelling the
// probe context on return kills any utility the backend left running.
func (o *Orchestrator) runProbe(ctx context.Context, b Backend) (*CapabilityRecord, error) {
	op := b.Name() + ".Detect"

	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	results := make(chan probeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- probeResult{err: errors.Newf(errors.Internal, "backend panicked: %v", r).WithOp(op)}
			}
		}()
		rec, err := b.Detect(ctx)
		results <- probeResult{rec: rec, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		return o.accept(b, res.rec)
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.Timeout, ctx.Err(), "backend timed out after %s", o.probeTimeout).WithOp(op)
	}
}

// accept normalizes a backend record and rejects records that do not
// describe the backend's own vendor.
func (o *Orchestrator) accept(b Backend, rec *CapabilityRecord) (*CapabilityRecord, error) {
	if rec == nil {
		return nil, ParseFailure(b.Name(), "backend returned no record", nil)
	}
	if rec.Vendor != b.Vendor() {
		return nil, ParseFailure(b.Name(), "backend returned a record for vendor "+rec.Vendor.String(), nil)
	}
	rec = rec.Clone().Normalize()
	if err := rec.Validate(); err != nil {
		return nil, ParseFailure(b.Name(), "backend returned an invalid record", err)
	}
	return rec, nil
}

var _ Detector = (*Orchestrator)(nil)
