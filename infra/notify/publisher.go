// Package notify implements the run-summary publisher over MQTT.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	corenotify "github.com/cleanbear/dispatch/core/notify"
	"github.com/cleanbear/dispatch/infra/logger"
)

// Options defines the connection parameters for the publisher.
type Options struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Username string
	Password string
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTPublisher delivers run summaries to an MQTT topic. It connects on
// construction and reconnects automatically.
type MQTTPublisher struct {
	cli   pahoClient
	topic string
	qos   byte
	log   logger.Logger
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(opts Options) (*MQTTPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("notify: broker is empty")
	}
	if opts.Topic == "" {
		opts.Topic = "dispatch/runs"
	}
	if opts.ClientID == "" {
		opts.ClientID = "dispatchd"
	}
	log := logger.New("notify")

	cliOpts := paho.NewClientOptions().AddBroker(opts.Broker).SetClientID(opts.ClientID)
	cliOpts.AutoReconnect = true
	if opts.Username != "" {
		cliOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		cliOpts.SetPassword(opts.Password)
	}
	cliOpts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	cliOpts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	c := newMQTTClient(cliOpts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTPublisher{cli: c, topic: opts.Topic, qos: opts.QoS, log: log}, nil
}

// PublishRunSummary implements notify.Publisher.
func (p *MQTTPublisher) PublishRunSummary(ctx context.Context, summary corenotify.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	token := p.cli.Publish(p.topic, p.qos, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish run %s: %w", summary.RunID, err)
	}
	p.log.Debugw("run summary published", map[string]any{
		"run_id": summary.RunID,
		"topic":  p.topic,
	})
	return nil
}

// Close gracefully disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
