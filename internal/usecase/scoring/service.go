// Package scoring is the worker half of the pipeline: it consumes the
// two job lanes, computes risk scores, raises alerts and publishes
// outcome events. Handlers are idempotent; redelivered jobs converge on
// the same persisted state.
package scoring

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

type Service struct {
	store     ports.IngestStore
	publisher ports.EventPublisher

	// Threshold is read per job and swapped atomically on config reload.
	thresholdBits atomic.Uint64

	now func() time.Time
}

func NewService(store ports.IngestStore, publisher ports.EventPublisher, riskThreshold float64) *Service {
	s := &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
	s.SetRiskThreshold(riskThreshold)
	return s
}

func (s *Service) SetRiskThreshold(threshold float64) {
	s.thresholdBits.Store(math.Float64bits(threshold))
}

func (s *Service) RiskThreshold() float64 {
	return math.Float64frombits(s.thresholdBits.Load())
}
