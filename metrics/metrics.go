package metrics

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// initialLogThreshold is the first request count at which logStats fires;
// nextLogAt doubles from there (§4.12, §9 "Metrics doubling schedule").
const initialLogThreshold = 1000

// TemplateMetrics is the compiler's atomic request/hit/miss counter and
// periodic logger (§4.12). The zero value is not usable; construct with
// New.
type TemplateMetrics struct {
	requests int64
	hits     int64
	misses   int64

	totalNanos int64
	maxNanos   int64

	hitTotalNanos int64
	hitMaxNanos   int64

	missTotalNanos int64
	missMaxNanos   int64

	nextLogAt int64

	logger        *slog.Logger
	cacheSizeFunc func() int
}

// Option configures a TemplateMetrics at construction time.
type Option func(*TemplateMetrics)

// WithLogger overrides the *slog.Logger periodic/shutdown snapshots are
// written to. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *TemplateMetrics) { m.logger = logger }
}

// WithCacheSizeFunc wires a callback reporting the current
// SegmentedLruCache entry count, surfaced as Snapshot.TemplateCacheSize.
func WithCacheSizeFunc(f func() int) Option {
	return func(m *TemplateMetrics) { m.cacheSizeFunc = f }
}

// New returns a TemplateMetrics ready to record timer closes.
func New(opts ...Option) *TemplateMetrics {
	m := &TemplateMetrics{
		nextLogAt: initialLogThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timer is a per-request timer. TemplateCompiler.Compile starts it on
// entry and closes it when the compiled template is returned, so the
// recorded time covers compilation (or the cache lookup) only; binding a
// compiled template is not timed (§4.12).
type Timer struct {
	start time.Time
	m     *TemplateMetrics
}

// Start begins timing a single compile request.
func (m *TemplateMetrics) Start() *Timer {
	return &Timer{start: time.Now(), m: m}
}

// Close records the elapsed time since Start into the requests counter
// plus the hits or misses counter depending on hit, then checks the
// doubling log schedule.
func (t *Timer) Close(hit bool) {
	t.m.record(hit, time.Since(t.start))
}

func (m *TemplateMetrics) record(hit bool, d time.Duration) {
	ns := d.Nanoseconds()

	requests := atomic.AddInt64(&m.requests, 1)
	atomic.AddInt64(&m.totalNanos, ns)
	raiseMax(&m.maxNanos, ns)

	if hit {
		atomic.AddInt64(&m.hits, 1)
		atomic.AddInt64(&m.hitTotalNanos, ns)
		raiseMax(&m.hitMaxNanos, ns)
	} else {
		atomic.AddInt64(&m.misses, 1)
		atomic.AddInt64(&m.missTotalNanos, ns)
		raiseMax(&m.missMaxNanos, ns)
	}

	m.maybeLog(requests)
}

// raiseMax CAS-loops cur up to ns if ns is larger, so concurrent closes
// never lose a high-water mark to a lost update.
func raiseMax(cur *int64, ns int64) {
	for {
		old := atomic.LoadInt64(cur)
		if ns <= old {
			return
		}
		if atomic.CompareAndSwapInt64(cur, old, ns) {
			return
		}
	}
}

// maybeLog fires logStats exactly once per doubling threshold: the CAS on
// nextLogAt ensures that under concurrent callers crossing the same
// threshold simultaneously, only the winner logs (§5, §9).
func (m *TemplateMetrics) maybeLog(requests int64) {
	for {
		threshold := atomic.LoadInt64(&m.nextLogAt)
		if requests < threshold {
			return
		}
		if atomic.CompareAndSwapInt64(&m.nextLogAt, threshold, threshold*2) {
			m.logStats()
			return
		}
	}
}

func (m *TemplateMetrics) logStats() {
	snap := m.Snapshot()
	m.logger.Info("sqltmpl: template metrics",
		slog.Int64("requests", snap.Requests),
		slog.Int64("hits", snap.Hits),
		slog.Int64("misses", snap.Misses),
		slog.Float64("hit_ratio_percent", snap.HitRatioPercent),
		slog.Float64("avg_micros", snap.AvgMicros),
		slog.Int64("max_micros", snap.MaxMicros),
		slog.Int("template_cache_size", snap.TemplateCacheSize),
	)
}

// Snapshot is the read-only MXBean-style view of TemplateMetrics at a
// point in time (§6 "Exposed to collaborators").
type Snapshot struct {
	Requests int64
	Hits     int64
	Misses   int64

	HitRatioPercent float64

	AvgMicros     float64
	AvgHitMicros  float64
	AvgMissMicros float64

	MaxMicros     int64
	MaxHitMicros  int64
	MaxMissMicros int64

	TemplateCacheSize int
}

// Snapshot returns the current counter values. It never blocks other
// callers recording concurrently; individual fields may reflect slightly
// different instants under contention, matching the lock-free design of
// the underlying counters.
func (m *TemplateMetrics) Snapshot() Snapshot {
	requests := atomic.LoadInt64(&m.requests)
	hits := atomic.LoadInt64(&m.hits)
	misses := atomic.LoadInt64(&m.misses)

	s := Snapshot{
		Requests:      requests,
		Hits:          hits,
		Misses:        misses,
		AvgMicros:     avgMicros(atomic.LoadInt64(&m.totalNanos), requests),
		AvgHitMicros:  avgMicros(atomic.LoadInt64(&m.hitTotalNanos), hits),
		AvgMissMicros: avgMicros(atomic.LoadInt64(&m.missTotalNanos), misses),
		MaxMicros:     atomic.LoadInt64(&m.maxNanos) / int64(time.Microsecond),
		MaxHitMicros:  atomic.LoadInt64(&m.hitMaxNanos) / int64(time.Microsecond),
		MaxMissMicros: atomic.LoadInt64(&m.missMaxNanos) / int64(time.Microsecond),
	}
	if requests > 0 {
		s.HitRatioPercent = float64(hits) / float64(requests) * 100
	}
	if m.cacheSizeFunc != nil {
		s.TemplateCacheSize = m.cacheSizeFunc()
	}
	return s
}

func avgMicros(totalNanos, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Microsecond)
}

// Reset zeroes every counter and restores the initial logging threshold.
func (m *TemplateMetrics) Reset() {
	atomic.StoreInt64(&m.requests, 0)
	atomic.StoreInt64(&m.hits, 0)
	atomic.StoreInt64(&m.misses, 0)
	atomic.StoreInt64(&m.totalNanos, 0)
	atomic.StoreInt64(&m.maxNanos, 0)
	atomic.StoreInt64(&m.hitTotalNanos, 0)
	atomic.StoreInt64(&m.hitMaxNanos, 0)
	atomic.StoreInt64(&m.missTotalNanos, 0)
	atomic.StoreInt64(&m.missMaxNanos, 0)
	atomic.StoreInt64(&m.nextLogAt, initialLogThreshold)
}

// Close flushes a final snapshot through the logger and swallows all
// errors, so a shutdown sequence never fails because metrics reporting
// did (§4.12).
func (m *TemplateMetrics) Close() error {
	m.logStats()
	return nil
}
