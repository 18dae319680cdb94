package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/invoiceflow/internal/logger"
	"github.com/Strob0t/invoiceflow/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

// uniqueSubject returns a subject captured by the stream that the
// validator treats as free-form JSON.
func uniqueSubject(t *testing.T) string {
	t.Helper()
	return "pipeline.test." + t.Name()
}

func dlqConsumer(t *testing.T, q *Queue, subject string) <-chan []byte {
	t.Helper()
	ctx := context.Background()
	c, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject + dlqSuffix,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		t.Fatalf("create DLQ consumer: %v", err)
	}
	out := make(chan []byte, 1)
	var once sync.Once
	sub, err := c.Consume(func(msg jetstream.Msg) {
		once.Do(func() { out <- msg.Data() })
		_ = msg.Ack()
	})
	if err != nil {
		t.Fatalf("consume DLQ: %v", err)
	}
	t.Cleanup(sub.Stop)
	return out
}

func TestQueue_PublishSubscribe(t *testing.T) {
	q := testConnect(t)
	subject := uniqueSubject(t)

	got := make(chan string, 1)
	stop, err := q.Subscribe(context.Background(), subject, func(ctx context.Context, _ string, d []byte) error {
		var p struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		select {
		case got <- p.Msg + "/" + logger.TraceID(ctx):
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithTraceID(context.Background(), "trace-42")
	if err := q.Publish(ctx, subject, []byte(`{"msg":"hello"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case v := <-got:
		if v != "hello/trace-42" {
			t.Errorf("got %q, want hello/trace-42", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestQueue_InvalidPayloadGoesToDLQ(t *testing.T) {
	q := testConnect(t)
	subject := messagequeue.SubjectDocumentReceived
	dlq := dlqConsumer(t, q, subject)

	stop, err := q.Subscribe(context.Background(), subject, func(context.Context, string, []byte) error { return nil })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(context.Background(), subject, []byte("not-json")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case data := <-dlq:
		if string(data) != "not-json" {
			t.Errorf("DLQ data = %q", data)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for DLQ message")
	}
}

func TestQueue_RetryExhaustionGoesToDLQ(t *testing.T) {
	q := testConnect(t)
	subject := uniqueSubject(t)
	dlq := dlqConsumer(t, q, subject)

	stop, err := q.Subscribe(context.Background(), subject, func(context.Context, string, []byte) error {
		return errAlwaysFail
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	msg := &nats.Msg{Subject: subject, Data: []byte(`{"exhausted":true}`), Header: nats.Header{}}
	msg.Header.Set(headerRetryCount, "3")
	if _, err := q.js.PublishMsg(context.Background(), msg); err != nil {
		t.Fatalf("PublishMsg: %v", err)
	}

	select {
	case data := <-dlq:
		if string(data) != `{"exhausted":true}` {
			t.Errorf("DLQ data = %q", data)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for DLQ message after retry exhaustion")
	}
}

func TestQueue_IsConnected(t *testing.T) {
	q := testConnect(t)
	if !q.IsConnected() {
		t.Error("IsConnected() = false after Connect, want true")
	}
}

func TestRetryCount(t *testing.T) {
	h := nats.Header{}
	if retryCount(h) != 0 {
		t.Fatal("missing header must count as zero")
	}
	h.Set(headerRetryCount, "2")
	if retryCount(h) != 2 {
		t.Fatal("expected 2")
	}
	h.Set(headerRetryCount, "junk")
	if retryCount(h) != 0 {
		t.Fatal("junk header must count as zero")
	}
}

func TestConsumerName(t *testing.T) {
	if got := consumerName("documents.received"); got != "invoiceflow_documents_received" {
		t.Fatalf("consumerName = %q", got)
	}
}

var errAlwaysFail = errSentinel("handler always fails")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
