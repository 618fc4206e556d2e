package gate

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/audit"
)

// Sink receives every gate decision. Record must not block the caller.
type Sink interface {
	Record(Decision)
}

// NopSink discards decisions.
type NopSink struct{}

func (NopSink) Record(Decision) {}

// MemorySink keeps decisions in memory, for planning and tests.
type MemorySink struct {
	mu        sync.Mutex
	decisions []Decision
}

func (m *MemorySink) Record(d Decision) {
	m.mu.Lock()
	m.decisions = append(m.decisions, d)
	m.mu.Unlock()
}

// Decisions returns a copy of everything recorded so far.
func (m *MemorySink) Decisions() []Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Decision(nil), m.decisions...)
}

// Handler processes one decision off the gate's hot path.
type Handler func(Decision) error

// AuditHandler appends decisions to a hash-chained audit log.
func AuditHandler(l *audit.Log) Handler {
	return func(d Decision) error {
		return l.Record(d.AuditEntry())
	}
}

// ZapHandler logs decisions at debug level, denials at info.
func ZapHandler(logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(d Decision) error {
		fields := []zap.Field{
			zap.String("operation_id", d.OperationID),
			zap.Stringer("symbol", d.Symbol),
			zap.String("path", d.Path),
			zap.Float64("structural", d.Delta.Structural),
			zap.Float64("environmental", d.Delta.Environmental),
			zap.Float64("semantic", d.Delta.Semantic),
			zap.Float64("weight", d.Weight),
			zap.Float64("threshold", d.Threshold),
			zap.Bool("unmeasured", d.Unmeasured),
		}
		if d.Passed {
			logger.Debug("escalation passed", fields...)
			return nil
		}
		logger.Info("escalation denied", append(fields, zap.String("reason", d.Reason))...)
		return nil
	}
}

// MultiHandler fans a decision out to every handler and joins their errors.
func MultiHandler(handlers ...Handler) Handler {
	return func(d Decision) error {
		var errs []error
		for _, h := range handlers {
			if h == nil {
				continue
			}
			if err := h(d); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// SyncSink runs a handler inline on the caller's goroutine. Handler errors
// are discarded. Suitable for cheap handlers such as ZapHandler.
type SyncSink struct {
	Handler Handler
}

func (s SyncSink) Record(d Decision) {
	if s.Handler != nil {
		_ = s.Handler(d)
	}
}

// DefaultBuffer is the AsyncSink queue size used when none is given.
const DefaultBuffer = 1024

// AsyncSink queues decisions on a bounded channel drained by one worker
// goroutine. When the queue is full the decision is dropped and counted.
type AsyncSink struct {
	ch      chan Decision
	handler Handler
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsyncSink starts the worker. Call Close to drain and stop it.
func NewAsyncSink(buffer int, h Handler, logger *zap.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AsyncSink{
		ch:      make(chan Decision, buffer),
		handler: h,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for d := range s.ch {
		if s.handler == nil {
			continue
		}
		if err := s.handler(d); err != nil {
			s.failed.Add(1)
			s.logger.Warn("gate sink handler failed",
				zap.String("operation_id", d.OperationID),
				zap.String("path", d.Path),
				zap.Error(err))
		}
	}
}

// Record enqueues d without blocking. After Close, decisions are dropped.
func (s *AsyncSink) Record(d Decision) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- d:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many decisions were discarded.
func (s *AsyncSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Failed returns how many decisions the handler rejected.
func (s *AsyncSink) Failed() uint64 {
	return s.failed.Load()
}

// Close stops accepting decisions, drains the queue and waits for the
// worker to exit. Safe to call more than once.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
	<-s.done
}
