package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/metrics"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, payload []byte) error
}

// AlertNotifier publishes committed alert events for dashboards and other
// subscribers. Publishing is best effort; the alert row is the record.
type AlertNotifier struct {
	ch        <-chan domain.AlertEvent
	publisher AlertPublisher
	logger    *zap.Logger
}

func NewAlertNotifier(ch <-chan domain.AlertEvent, publisher AlertPublisher, logger *zap.Logger) *AlertNotifier {
	return &AlertNotifier{ch: ch, publisher: publisher, logger: logger}
}

func (n *AlertNotifier) Run(ctx context.Context) {
	for {
		select {
		case evt, ok := <-n.ch:
			if !ok {
				return
			}
			n.publish(ctx, evt)

		case <-ctx.Done():
			return
		}
	}
}

func (n *AlertNotifier) publish(ctx context.Context, evt domain.AlertEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error("alert event marshal failed", zap.String("alert_id", evt.Alert.ID), zap.Error(err))
		return
	}
	if err := n.publisher.PublishAlert(ctx, payload); err != nil {
		metrics.AlertPublishFailure.Add(1)
		n.logger.Warn("alert publish failed",
			zap.String("alert_id", evt.Alert.ID),
			zap.String("type", string(evt.Type)),
			zap.Error(err),
		)
	}
}
