// Package bottleneck provides named synthetic workloads that perturb the
// service under controlled conditions. Scenarios run to completion from
// the caller's point of view and are never cancellable; the resource cost
// must stay attributable in metrics even if the original caller gave up.
package bottleneck

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"perflab/internal/metrics"
)

// Scenario names. Anything else is a no-op recorded under "unknown" so the
// scenario metric label stays a bounded enumeration.
const (
	ScenarioCPUSpin       = "cpu-spin"
	ScenarioMemoryBalloon = "memory-balloon"
	ScenarioLoopBlock     = "loop-block"
	ScenarioLatencyInject = "latency-inject"
	ScenarioResourceLeak  = "resource-leak"

	scenarioUnknown = "unknown"
)

// Params is the single numeric knob of a scenario: a duration for the
// time-based variants, a size for memory-balloon.
type Params struct {
	Duration time.Duration
	SizeMB   int
}

// LeakFunc acquires an external resource handle and returns its release
// function. The injector retains the release forever without calling it.
type LeakFunc func(ctx context.Context) (release func(), err error)

type Recorder interface {
	RecordCounter(name string, labels ...string)
	ObserveDuration(name string, seconds float64, labels ...string)
}

// Injector executes scenarios. The blocking variants (cpu-spin,
// loop-block) all run on one worker goroutine locked to a single OS
// thread: the Go analogue of a single-threaded event loop. Concurrent
// blocking scenarios serialize behind each other, so one loop-block
// observably delays every other operation sharing that context. Spawning
// them per-caller would silently remove the phenomenon under study.
type Injector struct {
	jobs     chan func()
	recorder Recorder
	logger   *slog.Logger
	leak     LeakFunc

	mu   sync.Mutex
	held []func() // leaked releases, retained so the handles stay reachable

	balloonMu sync.Mutex
	balloon   []byte
}

func New(recorder Recorder, logger *slog.Logger, leak LeakFunc, queueSize int) *Injector {
	if queueSize <= 0 {
		queueSize = 256
	}
	inj := &Injector{
		jobs:     make(chan func(), queueSize),
		recorder: recorder,
		logger:   logger,
		leak:     leak,
	}
	go inj.worker()
	return inj
}

func (inj *Injector) worker() {
	runtime.LockOSThread()
	for job := range inj.jobs {
		job()
	}
}

// Run executes the named scenario synchronously. Unknown names return
// without error or side effect; a harness typo must not fail a load test.
func (inj *Injector) Run(ctx context.Context, scenario string, p Params) {
	start := time.Now()

	switch scenario {
	case ScenarioCPUSpin:
		inj.onWorker(func() { cpuSpin(p.Duration) })
	case ScenarioLoopBlock:
		inj.onWorker(func() { loopBlock(p.Duration) })
	case ScenarioLatencyInject:
		// Pure delay: suspends without consuming CPU and without starving
		// the shared worker.
		time.Sleep(p.Duration)
	case ScenarioMemoryBalloon:
		inj.inflate(p)
	case ScenarioResourceLeak:
		inj.leakOne(ctx)
	default:
		scenario = scenarioUnknown
	}

	inj.recorder.RecordCounter(metrics.BottleneckRunsTotal, scenario)
	inj.recorder.ObserveDuration(metrics.BottleneckDuration, time.Since(start).Seconds(), scenario)
}

// onWorker queues fn on the shared execution context and waits for it.
func (inj *Injector) onWorker(fn func()) {
	done := make(chan struct{})
	inj.jobs <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// LeakedHandles reports how many handles the resource-leak scenario has
// acquired over the process lifetime. The count only grows.
func (inj *Injector) LeakedHandles() int {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return len(inj.held)
}

// Close stops the worker. Pending blocking scenarios still run to
// completion; leaked handles stay leaked by design.
func (inj *Injector) Close() {
	close(inj.jobs)
}

func (inj *Injector) inflate(p Params) {
	buf := make([]byte, p.SizeMB<<20)
	// Touch each page so the allocation is backed by real memory.
	for i := 0; i < len(buf); i += 4096 {
		buf[i] = 1
	}

	hold := p.Duration
	if hold <= 0 {
		hold = 250 * time.Millisecond
	}

	inj.balloonMu.Lock()
	inj.balloon = buf
	inj.balloonMu.Unlock()

	time.Sleep(hold)

	inj.balloonMu.Lock()
	inj.balloon = nil
	inj.balloonMu.Unlock()
}

func (inj *Injector) leakOne(ctx context.Context) {
	if inj.leak == nil {
		inj.logger.Warn("resource-leak scenario invoked without a leak source")
		return
	}
	release, err := inj.leak(ctx)
	if err != nil {
		inj.logger.Error("failed to acquire leakable handle", slog.String("error", err.Error()))
		return
	}

	// Intentionally never released.
	inj.mu.Lock()
	inj.held = append(inj.held, release)
	inj.mu.Unlock()

	inj.recorder.RecordCounter(metrics.LeakedHandlesTotal)
}

var spinSink [sha256.Size]byte

// cpuSpin keeps the worker continuously busy with real computation for the
// full duration.
func cpuSpin(d time.Duration) {
	deadline := time.Now().Add(d)
	digest := sha256.Sum256([]byte("perflab"))
	for time.Now().Before(deadline) {
		digest = sha256.Sum256(digest[:])
	}
	spinSink = digest
}

// loopBlock busy-waits doing no useful work. It differs from cpu-spin only
// in the scheduling pattern it exercises: a bare spin loop rather than
// repeated computation.
func loopBlock(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
