package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

var (
	connectTimeout = 10 * time.Second
	newClient      = paho.NewClient
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client  paho.Client
	timeout time.Duration
}

// NewRealPublisher connects to broker.  The client id gets a random suffix
// so several server replicas can share a broker.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Stop the background connect retries.
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker %s: timeout after %v", broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client, timeout: 2 * time.Second}, nil
}

// PublishAccess sends ev at QoS 1, not retained.  It waits for the broker
// at most until ctx is done or the publish timeout passes.
func (p *RealPublisher) PublishAccess(ctx context.Context, ev store.AccessEventRecord) error {
	payload, err := FormatPayload(ev)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := p.client.Publish(AccessTopic(ev.PointID), 1, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("publish timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
