package mqtt

import (
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// SetClientFactory swaps the paho client constructor for the test's
// duration.
func SetClientFactory(t *testing.T, connectWait time.Duration, fn func(*paho.ClientOptions) paho.Client) {
	t.Helper()
	prevClient, prevWait := newClient, connectTimeout
	newClient, connectTimeout = fn, connectWait
	t.Cleanup(func() { newClient, connectTimeout = prevClient, prevWait })
}
