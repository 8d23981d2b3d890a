package pipeline

import (
	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/metrics"
)

// EventSink receives committed readings and alert events. Implementations
// must not block the caller.
type EventSink interface {
	DispatchReading(r domain.TemperatureReading)
	DispatchAlert(e domain.AlertEvent)
}

type Dispatcher struct {
	StateChan chan domain.TemperatureReading
	AlertChan chan domain.AlertEvent
}

func NewDispatcher(stateSize, alertSize int) *Dispatcher {
	return &Dispatcher{
		StateChan: make(chan domain.TemperatureReading, stateSize),
		AlertChan: make(chan domain.AlertEvent, alertSize),
	}
}

func (d *Dispatcher) DispatchReading(r domain.TemperatureReading) {
	select {
	case d.StateChan <- r:
	default:
		metrics.StateChannelDrops.Add(1)
	}
}

func (d *Dispatcher) DispatchAlert(e domain.AlertEvent) {
	select {
	case d.AlertChan <- e:
	default:
		metrics.AlertChannelDrops.Add(1)
	}
}

type noopSink struct{}

func (noopSink) DispatchReading(domain.TemperatureReading) {}
func (noopSink) DispatchAlert(domain.AlertEvent)           {}
