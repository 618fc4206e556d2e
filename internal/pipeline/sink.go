package pipeline

import (
	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/audit"
	"github.com/ppiankov/glyphgate/internal/config"
	"github.com/ppiankov/glyphgate/internal/gate"
)

// DecisionSink is the gate sink described by the audit section: every
// decision is logged through zap and, when a path is set, appended to the
// audit log. Close drains the queue and closes the log.
type DecisionSink struct {
	*gate.AsyncSink
	log *audit.Log
}

// OpenSink starts the sink for cfg.
func OpenSink(cfg config.AuditConfig, logger *zap.Logger) (*DecisionSink, error) {
	handlers := []gate.Handler{gate.ZapHandler(logger)}
	var log *audit.Log
	if cfg.Path != "" {
		l, err := audit.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		log = l
		handlers = append(handlers, gate.AuditHandler(l))
	}
	return &DecisionSink{
		AsyncSink: gate.NewAsyncSink(cfg.Buffer, gate.MultiHandler(handlers...), logger),
		log:       log,
	}, nil
}

// Close drains pending decisions and closes the audit log.
func (s *DecisionSink) Close() error {
	s.AsyncSink.Close()
	if s.log != nil {
		return s.log.Close()
	}
	return nil
}
