package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	KindUnknownPayment       = "unknown_payment"
	KindUnexpectedCompletion = "unexpected_completion"
	KindAmountMismatch       = "amount_mismatch"
	KindLatePreCheck         = "late_precheck"
)

// Alert describes a divergence between the payment provider and the purchase store.
type Alert struct {
	Kind              string    `json:"kind"`
	ExternalPaymentID string    `json:"external_payment_id"`
	PurchaseID        uint64    `json:"purchase_id,omitempty"`
	State             string    `json:"state,omitempty"`
	Detail            string    `json:"detail,omitempty"`
	At                time.Time `json:"at"`
}

type Alerter interface {
	Alert(ctx context.Context, alert Alert) error
}

type KafkaAlerter struct {
	client *kgo.Client
	topic  string
}

func NewKafkaAlerter(brokers []string, topic, clientID string) (*KafkaAlerter, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka alert producer: %w", err)
	}
	return &KafkaAlerter{client: client, topic: topic}, nil
}

// Alert publishes synchronously, keyed by external payment id so alerts for one
// payment stay ordered within a partition.
func (a *KafkaAlerter) Alert(ctx context.Context, alert Alert) error {
	record, err := newRecord(a.topic, alert)
	if err != nil {
		return err
	}
	return a.client.ProduceSync(ctx, record).FirstErr()
}

func (a *KafkaAlerter) Close() {
	a.client.Close()
}

func newRecord(topic string, alert Alert) (*kgo.Record, error) {
	value, err := json.Marshal(alert)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(alert.ExternalPaymentID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(alert.Kind)},
		},
	}, nil
}

// LogAlerter writes alerts to the log only.
type LogAlerter struct {
	logger logrus.FieldLogger
}

func NewLogAlerter(logger logrus.FieldLogger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Alert(_ context.Context, alert Alert) error {
	a.logger.WithFields(logrus.Fields{
		"alert_kind":          alert.Kind,
		"external_payment_id": alert.ExternalPaymentID,
		"purchase_id":         alert.PurchaseID,
		"state":               alert.State,
		"detail":              alert.Detail,
	}).Error("operator_alert")
	return nil
}
