// Package mqtt mirrors logged device states onto an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/septivank/device-activity-log/internal/notify"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Options holds MQTT connection settings
type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
}

// Bridge publishes the latest state of each device as a retained message
type Bridge struct {
	client paho.Client
	prefix string
	logger *zap.Logger
}

// NewBridge connects to the broker
func NewBridge(opts Options, logger *zap.Logger) (*Bridge, error) {
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	client := paho.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("[MQTT CONNECTION FAILED] timed out connecting to %s", opts.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("[MQTT CONNECTION FAILED] cannot connect to %s: %w", opts.BrokerURL, err)
	}
	logger.Info("mqtt connection established", zap.String("broker", opts.BrokerURL))

	return &Bridge{client: client, prefix: opts.TopicPrefix, logger: logger}, nil
}

// StateTopic returns <prefix>/<environment>/<room>/<device>/state
func StateTopic(prefix, environmentID, roomID, deviceID string) string {
	segments := []string{environmentID, roomID, deviceID, "state"}
	for i, s := range segments[:3] {
		segments[i] = sanitizeSegment(s)
	}
	if prefix != "" {
		segments = append([]string{strings.TrimSuffix(prefix, "/")}, segments...)
	}
	return strings.Join(segments, "/")
}

func sanitizeSegment(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}

// StatePayload renders a device state
func StatePayload(state bool) string {
	if state {
		return "on"
	}
	return "off"
}

// PublishActivity publishes the activity's state. It satisfies notify.Listener.
func (b *Bridge) PublishActivity(ctx context.Context, evt notify.Event) error {
	a := evt.Activity
	topic := StateTopic(b.prefix, a.EnvironmentID, a.RoomID, a.DeviceID)

	token := b.client.Publish(topic, 1, true, StatePayload(a.State))
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("failed to publish device state: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish device state: %w", err)
	}

	b.logger.Debug("published device state", zap.String("topic", topic), zap.Bool("state", a.State))
	return nil
}

// Close disconnects from the broker, allowing in-flight publishes a short grace period
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
