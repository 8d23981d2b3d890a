package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	ReadingsReceived    atomic.Int64
	ReadingsRejected    atomic.Int64
	ReadingsUnevaluated atomic.Int64
	Violations          atomic.Int64
	AlertsOpened        atomic.Int64
	AlertsEscalated     atomic.Int64
	AlertsResolved      atomic.Int64
	StateChannelDrops   atomic.Int64
	AlertChannelDrops   atomic.Int64
	StateWriteFailures  atomic.Int64
	AlertPublishFailure atomic.Int64
	MQTTMessages        atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "compliance_readings_received_total %d\n", ReadingsReceived.Load())
	fmt.Fprintf(w, "compliance_readings_rejected_total %d\n", ReadingsRejected.Load())
	fmt.Fprintf(w, "compliance_readings_unevaluated_total %d\n", ReadingsUnevaluated.Load())
	fmt.Fprintf(w, "compliance_violations_total %d\n", Violations.Load())
	fmt.Fprintf(w, "compliance_alerts_opened_total %d\n", AlertsOpened.Load())
	fmt.Fprintf(w, "compliance_alerts_escalated_total %d\n", AlertsEscalated.Load())
	fmt.Fprintf(w, "compliance_alerts_resolved_total %d\n", AlertsResolved.Load())
	fmt.Fprintf(w, "compliance_state_channel_drops_total %d\n", StateChannelDrops.Load())
	fmt.Fprintf(w, "compliance_alert_channel_drops_total %d\n", AlertChannelDrops.Load())
	fmt.Fprintf(w, "compliance_state_write_failures_total %d\n", StateWriteFailures.Load())
	fmt.Fprintf(w, "compliance_alert_publish_failures_total %d\n", AlertPublishFailure.Load())
	fmt.Fprintf(w, "compliance_mqtt_messages_total %d\n", MQTTMessages.Load())
}
