package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/metrics"
	"coldchain/compliance/internal/store"
)

// AlertManager owns the per-shipment alert slot:
//
//	none -> pending      first violation opens an alert
//	pending -> pending   later violations raise severity, never lower it
//	pending -> resolved  explicit operator resolution with a note
//
// Resolved alerts are terminal and in-range readings never close an alert.
type AlertManager struct {
	store  store.Store
	sink   EventSink
	now    func() time.Time
	logger *zap.Logger
}

func NewAlertManager(st store.Store, sink EventSink, logger *zap.Logger) *AlertManager {
	if sink == nil {
		sink = noopSink{}
	}
	return &AlertManager{
		store:  st,
		sink:   sink,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// RecordViolation stores a violating reading and opens or updates the
// shipment's alert. It must run inside the shipment's locked scope.
func (m *AlertManager) RecordViolation(
	ctx context.Context,
	tx store.ShipmentTx,
	reading *domain.TemperatureReading,
	verdict domain.Verdict,
) (domain.AlertEvent, error) {
	open, err := tx.OpenAlert(ctx)
	if err != nil {
		return domain.AlertEvent{}, err
	}

	if open == nil {
		alert := domain.Alert{
			ID:                 uuid.NewString(),
			ShipmentID:         reading.ShipmentID,
			TriggerReadingID:   reading.ID,
			TriggerTemperature: reading.Temperature,
			Location:           reading.Location,
			Severity:           verdict.Severity,
			Status:             domain.AlertPending,
			OpenedAt:           reading.Timestamp,
			LastViolationAt:    reading.Timestamp,
			ViolationCount:     1,
		}
		reading.AlertID = alert.ID
		if err := tx.InsertReading(ctx, *reading); err != nil {
			return domain.AlertEvent{}, err
		}
		if err := tx.InsertAlert(ctx, alert); err != nil {
			return domain.AlertEvent{}, err
		}
		if err := tx.LinkReading(ctx, alert.ID, reading.ID); err != nil {
			return domain.AlertEvent{}, err
		}
		return domain.AlertEvent{Type: domain.AlertOpened, Alert: alert, ReadingID: reading.ID, OccurredAt: m.now()}, nil
	}

	alert := *open
	previous := alert.Severity
	alert.Severity = domain.MaxSeverity(alert.Severity, verdict.Severity)
	alert.ViolationCount++
	if reading.Timestamp.After(alert.LastViolationAt) {
		alert.LastViolationAt = reading.Timestamp
	}

	reading.AlertID = alert.ID
	if err := tx.InsertReading(ctx, *reading); err != nil {
		return domain.AlertEvent{}, err
	}
	if err := tx.UpdateAlert(ctx, alert); err != nil {
		return domain.AlertEvent{}, err
	}
	if err := tx.LinkReading(ctx, alert.ID, reading.ID); err != nil {
		return domain.AlertEvent{}, err
	}

	evtType := domain.AlertUpdated
	if alert.Severity != previous {
		evtType = domain.AlertEscalated
	}
	return domain.AlertEvent{Type: evtType, Alert: alert, ReadingID: reading.ID, OccurredAt: m.now()}, nil
}

// Resolve acknowledges an open alert. The current temperature does not
// need to be back in range.
func (m *AlertManager) Resolve(ctx context.Context, in domain.ResolveInput) (domain.Alert, error) {
	note := strings.TrimSpace(in.Note)
	by := strings.TrimSpace(in.ResolvedBy)
	if note == "" {
		return domain.Alert{}, domain.Validationf("resolution note is required")
	}
	if by == "" {
		return domain.Alert{}, domain.Validationf("resolvedBy is required")
	}

	current, err := m.store.GetAlert(ctx, in.AlertID)
	if err != nil {
		return domain.Alert{}, err
	}

	var resolved domain.Alert
	err = m.store.WithShipmentLock(ctx, current.ShipmentID, func(tx store.ShipmentTx) error {
		alert, err := tx.GetAlert(ctx, in.AlertID)
		if err != nil {
			return err
		}
		if alert.Status != domain.AlertPending {
			return domain.Conflictf("alert %s is already %s", alert.ID, alert.Status)
		}

		at := m.now()
		alert.Status = domain.AlertResolved
		alert.ResolvedAt = &at
		alert.ResolvedBy = &by
		alert.ResolutionNote = &note
		if err := tx.UpdateAlert(ctx, alert); err != nil {
			return err
		}
		resolved = alert
		return nil
	})
	if err != nil {
		return domain.Alert{}, err
	}

	metrics.AlertsResolved.Add(1)
	m.logger.Info("alert resolved",
		zap.String("alert_id", resolved.ID),
		zap.String("shipment_id", resolved.ShipmentID),
		zap.String("resolved_by", by),
	)
	m.sink.DispatchAlert(domain.AlertEvent{Type: domain.AlertClosed, Alert: resolved, OccurredAt: *resolved.ResolvedAt})
	return resolved, nil
}
