package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/metrics"
	"coldchain/compliance/internal/store"
)

const (
	maxLocationLen = 255
	maxNoteLen     = 1000
)

// Ingestor validates a reading, evaluates it against the range in effect at
// its timestamp and records it together with any alert change. The work for
// one shipment is serialized by the store.
type Ingestor struct {
	store     store.Store
	resolver  *RangeResolver
	evaluator *Evaluator
	alerts    *AlertManager
	sink      EventSink
	clockSkew time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewIngestor(
	st store.Store,
	resolver *RangeResolver,
	evaluator *Evaluator,
	alerts *AlertManager,
	sink EventSink,
	clockSkew time.Duration,
	logger *zap.Logger,
) *Ingestor {
	if sink == nil {
		sink = noopSink{}
	}
	return &Ingestor{
		store:     st,
		resolver:  resolver,
		evaluator: evaluator,
		alerts:    alerts,
		sink:      sink,
		clockSkew: clockSkew,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

func (i *Ingestor) Ingest(ctx context.Context, in domain.ReadingInput) (domain.IngestResult, error) {
	metrics.ReadingsReceived.Add(1)

	now := i.now()
	reading, err := i.validate(in, now)
	if err != nil {
		metrics.ReadingsRejected.Add(1)
		return domain.IngestResult{}, err
	}

	var (
		result domain.IngestResult
		event  *domain.AlertEvent
	)
	err = i.store.WithShipmentLock(ctx, reading.ShipmentID, func(tx store.ShipmentTx) error {
		sh := tx.Shipment()
		if !sh.Status.AcceptsReadings() {
			return domain.Validationf("shipment %s is %s; readings are accepted only while processing or in-transit", sh.ID, sh.Status)
		}

		rng, err := i.resolver.ResolveWith(ctx, tx, sh, reading.Timestamp)
		switch {
		case domain.IsKind(err, domain.KindRangeNotFound):
			reading.Compliance = domain.Unevaluated
			result.Warning = err.Error()
			return tx.InsertReading(ctx, reading)
		case err != nil:
			return err
		}

		verdict := i.evaluator.Evaluate(reading.Temperature, rng)
		reading.Compliance = verdict.Compliance
		if verdict.Compliance == domain.Compliant {
			return tx.InsertReading(ctx, reading)
		}

		reading.Severity = verdict.Severity
		evt, err := i.alerts.RecordViolation(ctx, tx, &reading, verdict)
		if err != nil {
			return err
		}
		event = &evt
		return nil
	})
	if err != nil {
		if !domain.IsKind(err, domain.KindStorage) {
			metrics.ReadingsRejected.Add(1)
		}
		return domain.IngestResult{}, err
	}

	result.ReadingID = reading.ID
	result.Compliance = reading.Compliance
	result.Severity = reading.Severity
	result.AlertID = reading.AlertID

	i.sink.DispatchReading(reading)
	switch reading.Compliance {
	case domain.Unevaluated:
		metrics.ReadingsUnevaluated.Add(1)
		i.logger.Warn("reading stored unevaluated",
			zap.String("shipment_id", reading.ShipmentID),
			zap.String("reading_id", reading.ID),
			zap.String("reason", result.Warning),
		)
	case domain.Violation:
		metrics.Violations.Add(1)
		i.recordAlertEvent(*event)
		result.AlertOpened = event.Type == domain.AlertOpened
	}
	return result, nil
}

func (i *Ingestor) recordAlertEvent(evt domain.AlertEvent) {
	switch evt.Type {
	case domain.AlertOpened:
		metrics.AlertsOpened.Add(1)
		i.logger.Info("alert opened",
			zap.String("alert_id", evt.Alert.ID),
			zap.String("shipment_id", evt.Alert.ShipmentID),
			zap.String("severity", string(evt.Alert.Severity)),
			zap.Float64("temperature", evt.Alert.TriggerTemperature),
		)
	case domain.AlertEscalated:
		metrics.AlertsEscalated.Add(1)
		i.logger.Info("alert escalated",
			zap.String("alert_id", evt.Alert.ID),
			zap.String("shipment_id", evt.Alert.ShipmentID),
			zap.String("severity", string(evt.Alert.Severity)),
		)
	}
	i.sink.DispatchAlert(evt)
}

func (i *Ingestor) validate(in domain.ReadingInput, now time.Time) (domain.TemperatureReading, error) {
	shipmentID := strings.TrimSpace(in.ShipmentID)
	if shipmentID == "" {
		return domain.TemperatureReading{}, domain.Validationf("shipmentId is required")
	}
	if in.Temperature == nil {
		return domain.TemperatureReading{}, domain.Validationf("temperature is required")
	}
	if math.IsNaN(*in.Temperature) || math.IsInf(*in.Temperature, 0) {
		return domain.TemperatureReading{}, domain.Validationf("temperature must be a finite number")
	}
	if in.Humidity != nil && (math.IsNaN(*in.Humidity) || *in.Humidity < 0 || *in.Humidity > 100) {
		return domain.TemperatureReading{}, domain.Validationf("humidity must be between 0 and 100")
	}

	location := strings.TrimSpace(in.Location)
	if len(location) > maxLocationLen {
		return domain.TemperatureReading{}, domain.Validationf("location must be at most %d characters", maxLocationLen)
	}
	note := strings.TrimSpace(in.Note)
	if len(note) > maxNoteLen {
		return domain.TemperatureReading{}, domain.Validationf("note must be at most %d characters", maxNoteLen)
	}

	ts := now
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
		if ts.After(now.Add(i.clockSkew)) {
			return domain.TemperatureReading{}, domain.Validationf("timestamp %s is in the future", ts.Format(time.RFC3339))
		}
	}

	source := in.Source
	if source == "" {
		source = domain.SourceManual
	}

	return domain.TemperatureReading{
		ID:          uuid.NewString(),
		ShipmentID:  shipmentID,
		Timestamp:   ts,
		ReceivedAt:  now,
		Temperature: *in.Temperature,
		Humidity:    in.Humidity,
		Location:    location,
		Note:        note,
		Source:      source,
	}, nil
}
