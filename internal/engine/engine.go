package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ejcamacho11/CharLib/internal/model"
	"github.com/ejcamacho11/CharLib/internal/spice"
	"github.com/ejcamacho11/CharLib/internal/stimulus"
)

// DefaultWorkers bounds the simulation pool when no width is
// configured.
const DefaultWorkers = 4

// Recorder persists measurements as they land. Implemented by the
// sqlite store; a nil recorder keeps results in memory only.
type Recorder interface {
	Record(ctx context.Context, runToken string, cell string, arc model.ArcID, corner model.Corner, m model.Measurement) error
}

// Engine drives one characterization run: it expands arcs into corner
// trials, simulates them through a bounded worker pool, and aggregates
// the results into per-cell measurement tables.
//
// Thread-safety model:
//   - Characterize() owns the run; call it from one goroutine
//   - workers insert into the CellModel, whose table is internally locked
//   - the clock and run token generator are safe for concurrent use
type Engine struct {
	sim      spice.Simulator
	builder  *stimulus.Builder
	sweep    model.Sweep
	clock    Sequencer
	tokenGen RunTokenGenerator
	recorder Recorder
	log      *slog.Logger

	workers int
	timeout time.Duration
	retry   RetryPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the simulation pool width.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTimeout bounds each simulator invocation. Zero disables the
// per-trial deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithRetry sets the per-corner retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithRecorder attaches a measurement store.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock installs a caller-owned sequencer: a pre-positioned Clock
// when resuming a run, or a resettable test clock.
func WithClock(c Sequencer) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger routes engine logs.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine simulating through sim under the given
// conditions and sweep.
func New(sim spice.Simulator, conditions model.Conditions, sweep model.Sweep, tokenGen RunTokenGenerator, opts ...Option) *Engine {
	e := &Engine{
		sim:      sim,
		builder:  &stimulus.Builder{Conditions: conditions},
		sweep:    sweep,
		clock:    NewClock(),
		tokenGen: tokenGen,
		log:      slog.Default(),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run is the outcome of characterizing one cell.
type Run struct {
	Token string
	Model *model.CellModel
	// Unmeasured counts the corners degraded after exhausting retries.
	Unmeasured int
}

// Characterize sweeps every arc of the cell across the configured
// corners and returns the aggregated cell model.
//
// Delay arcs get the full slew x load cross-product; constraint arcs
// get one converged offset per (slew, load) point. Transient failures
// are retried per the policy; a corner that keeps failing is recorded
// Unmeasured with its reason and the sweep continues. Cancelling the
// context stops dispatch, waits for in-flight trials, and returns the
// partial model alongside ctx.Err().
func (e *Engine) Characterize(ctx context.Context, cell *model.Cell, arcs []model.TimingArc) (*Run, error) {
	token := e.tokenGen.Generate()
	cm := model.NewCellModel(cell, arcs)
	corners := model.SweepCorners(e.sweep.Slews, e.sweep.Loads)

	queue := newTrialQueue()
	for _, arc := range arcs {
		if err := cm.RegisterCorners(arc.ID, corners); err != nil {
			return nil, err
		}
		for _, corner := range corners {
			queue.Enqueue(trial{Arc: arc, Corner: corner})
		}
	}
	queue.Close()

	e.log.Info("characterization started",
		slog.String("run", token),
		slog.String("cell", cell.Name),
		slog.Int("arcs", len(arcs)),
		slog.Int("corners", len(corners)),
		slog.Int("trials", queue.Len()),
		slog.Int("workers", e.workers))

	run := &Run{Token: token, Model: cm}
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		firstErr   error
		unmeasured int
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				t, ok := queue.TryDequeue()
				if !ok {
					return
				}
				if ctx.Err() != nil {
					return
				}
				degraded, err := e.runTrial(ctx, token, cell, cm, t)
				if err != nil {
					fail(err)
					return
				}
				if degraded {
					mu.Lock()
					unmeasured++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	run.Unmeasured = unmeasured
	if ctx.Err() != nil {
		return run, ctx.Err()
	}
	if firstErr != nil {
		return run, firstErr
	}

	e.log.Info("characterization finished",
		slog.String("run", token),
		slog.String("cell", cell.Name),
		slog.Bool("complete", cm.Complete()),
		slog.Int("unmeasured", unmeasured))
	return run, nil
}

// runTrial measures one corner with retries and inserts the result.
// The returned bool reports whether the corner degraded to Unmeasured.
func (e *Engine) runTrial(ctx context.Context, token string, cell *model.Cell, cm *model.CellModel, t trial) (bool, error) {
	var (
		meas    model.Measurement
		lastErr error
	)
	for attempt := 1; ; attempt++ {
		var err error
		meas, err = e.measure(ctx, cell, t)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		lastErr = err
		if e.retry.Retryable(attempt, err) {
			e.log.Warn("trial retrying",
				slog.String("cell", cell.Name),
				slog.String("arc", t.Arc.String()),
				slog.String("corner", t.Corner.String()),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}
		// Degrade: the sweep survives, the corner is marked.
		exhausted := &AttemptsExhaustedError{
			Cell: cell.Name, Arc: t.Arc.String(), Attempts: attempt, Last: lastErr,
		}
		e.log.Error("trial unmeasured",
			slog.String("cell", cell.Name),
			slog.String("arc", t.Arc.String()),
			slog.String("corner", t.Corner.String()),
			slog.String("error", exhausted.Error()))
		meas = model.Measurement{
			Status: model.Unmeasured,
			Reason: exhausted.Error(),
		}
		break
	}

	meas.Seq = e.clock.Next()
	if err := cm.Insert(t.Arc.ID, t.Corner, meas); err != nil {
		return false, err
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, token, cell.Name, t.Arc.ID, t.Corner, meas); err != nil {
			return false, fmt.Errorf("record measurement: %w", err)
		}
	}
	return meas.Status == model.Unmeasured, nil
}

// measure dispatches a trial by arc kind.
func (e *Engine) measure(ctx context.Context, cell *model.Cell, t trial) (model.Measurement, error) {
	if t.Arc.Kind.Constraint() {
		return e.measureConstraint(ctx, cell, t.Arc, t.Corner)
	}
	return e.measureDelay(ctx, cell, t.Arc, t.Corner)
}

// runDeck runs one deck under the per-trial deadline.
func (e *Engine) runDeck(ctx context.Context, deck spice.Deck) (spice.Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	res, err := e.sim.Run(ctx, deck)
	if err != nil {
		return spice.Result{}, err
	}
	return res, nil
}
