package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"coldchain/compliance/internal/config"
	"coldchain/compliance/internal/domain"
	"coldchain/compliance/internal/metrics"
)

const handleTimeout = 10 * time.Second

type ReadingIngestor interface {
	Ingest(ctx context.Context, in domain.ReadingInput) (domain.IngestResult, error)
}

// Subscriber feeds readings published by reefer units into the ingestor.
// Topics look like coldchain/readings/{shipmentId}.
type Subscriber struct {
	cfg      *config.Config
	ingestor ReadingIngestor
	logger   *zap.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewSubscriber(cfg *config.Config, ingestor ReadingIngestor, logger *zap.Logger) *Subscriber {
	return &Subscriber{cfg: cfg, ingestor: ingestor, logger: logger}
}

// Run connects, subscribes and blocks until ctx is cancelled. It returns
// only after every message being handled has finished.
func (s *Subscriber) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.MQTTBroker)
	opts.SetClientID(s.cfg.MQTTClientID)
	if s.cfg.MQTTUsername != "" {
		opts.SetUsername(s.cfg.MQTTUsername)
	}
	if s.cfg.MQTTPassword != "" {
		opts.SetPassword(s.cfg.MQTTPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	qos := byte(s.cfg.MQTTQoS)
	// Subscriptions are lost with a clean session, so renew them on every connect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.MQTTTopic, qos, func(_ mqtt.Client, msg mqtt.Message) {
			s.deliver(ctx, msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			s.logger.Error("mqtt subscribe failed", zap.String("topic", s.cfg.MQTTTopic), zap.Error(token.Error()))
			return
		}
		s.logger.Info("mqtt subscribed", zap.String("topic", s.cfg.MQTTTopic))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	<-ctx.Done()
	client.Disconnect(250)
	s.drain()
	return nil
}

func (s *Subscriber) deliver(ctx context.Context, topic string, payload []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	if err := s.Handle(ctx, topic, payload); err != nil {
		s.logger.Warn("mqtt reading rejected",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

// drain stops accepting messages and waits for in-flight ones.
func (s *Subscriber) drain() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}

// Handle decodes one message and ingests it as a device reading. The
// shipment id falls back to the last topic segment.
func (s *Subscriber) Handle(ctx context.Context, topic string, payload []byte) error {
	metrics.MQTTMessages.Add(1)

	var in domain.ReadingInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return domain.Validationf("invalid reading payload: %v", err)
	}
	if strings.TrimSpace(in.ShipmentID) == "" {
		if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
			in.ShipmentID = topic[i+1:]
		}
	}
	in.Source = domain.SourceDevice

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	res, err := s.ingestor.Ingest(ctx, in)
	if err != nil {
		return err
	}
	s.logger.Debug("mqtt reading ingested",
		zap.String("shipment_id", in.ShipmentID),
		zap.String("reading_id", res.ReadingID),
		zap.String("compliance", string(res.Compliance)),
	)
	return nil
}
