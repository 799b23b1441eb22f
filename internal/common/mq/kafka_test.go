package mq

import (
	"testing"
	"time"

	"codequest/internal/testutil"
)

func TestToKafkaMessage(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &Message{ID: "sub-1", Body: []byte(`{"ok":true}`), Timestamp: ts}
	msg.SetHeader("event", "submission.judged")

	km := toKafkaMessage("submission.events", msg)
	testutil.AssertEqual(t, km.Topic, "submission.events")
	testutil.AssertEqual(t, string(km.Key), "sub-1")
	testutil.AssertEqual(t, string(km.Value), `{"ok":true}`)

	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	testutil.AssertEqual(t, headers["event"], "submission.judged")
	testutil.AssertEqual(t, headers[headerID], "sub-1")
	testutil.AssertEqual(t, headers[headerTimestamp], ts.Format(time.RFC3339Nano))
}

func TestNewKafkaProducerRequiresBrokers(t *testing.T) {
	_, err := NewKafkaProducer(KafkaConfig{})
	testutil.AssertNotNil(t, err)

	p, err := NewKafkaProducer(KafkaConfig{Brokers: []string{"localhost:9092"}})
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, p.config.BatchSize, 100)
	testutil.MustNoError(t, p.Close())
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage([]byte("x"))
	testutil.AssertTrue(t, msg.ID != "", "message id should be generated")
	testutil.AssertFalse(t, msg.Timestamp.IsZero(), "timestamp should be set")
}
