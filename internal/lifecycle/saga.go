package lifecycle

import (
	"context"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/metrics"
	"github.com/sirupsen/logrus"
)

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga records the compensating write for every step that has committed so a
// later failure can undo them in reverse order.
type saga struct {
	log     *logrus.Entry
	metrics *metrics.Collectors
	undo    []compensation
}

func newSaga(log *logrus.Entry, m *metrics.Collectors) *saga {
	return &saga{log: log, metrics: m}
}

// onFailure registers the compensation for a step that just committed
func (s *saga) onFailure(step string, undo func(ctx context.Context) error) {
	s.undo = append(s.undo, compensation{step: step, undo: undo})
}

// rollback runs the registered compensations newest first and reports whether
// all of them succeeded. It keeps going after a failed compensation.
func (s *saga) rollback(ctx context.Context) bool {
	// compensations must run even if the caller went away
	ctx = context.WithoutCancel(ctx)

	ok := true
	for i := len(s.undo) - 1; i >= 0; i-- {
		c := s.undo[i]
		err := c.undo(ctx)
		s.metrics.Compensated(c.step, err == nil)
		if err != nil {
			ok = false
			s.log.WithError(err).WithField("step", c.step).Error("Compensation failed")
			continue
		}
		s.log.WithField("step", c.step).Warn("Compensation applied")
	}
	s.undo = nil
	return ok
}
