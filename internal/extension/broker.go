package extension

import (
	"context"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/retry"
)

// Broker publishes topic-management callbacks to providers. The production
// implementation speaks NATS; tests swap in an in-memory one.
type Broker interface {
	Publish(subject string, data []byte) error
	Close()
}

type natsBroker struct {
	conn *nats.Conn
}

// ConnectBroker dials the NATS server at url, retrying while the broker
// comes up.
func ConnectBroker(ctx context.Context, url string) (Broker, error) {
	conn, err := retry.DoWithResult(ctx, retry.Startup(), func() (*nats.Conn, error) {
		return nats.Connect(url, nats.Name("invehicle-digital-twin"))
	})
	if err != nil {
		return nil, fmt.Errorf("connect to broker at %s: %w", url, err)
	}
	log.Printf("📨 [%s] Connected to broker at %s", componentName, url)
	return &natsBroker{conn: conn}, nil
}

func (b *natsBroker) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

func (b *natsBroker) Close() {
	_ = b.conn.Drain()
}
