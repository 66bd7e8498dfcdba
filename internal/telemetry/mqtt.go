// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/wneessen/clockdash/internal/logger"
)

const disconnectQuiesce = 250

// MQTTOptions configures the MQTT sink.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
}

// Event is the JSON document published for every emitted event.
type Event struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes events to an MQTT broker with QoS 0. It never waits for the
// publish token.
type MQTTSink struct {
	client    mqtt.Client
	publisher publisher
	topic     string
	log       *logger.Logger
}

// NewMQTTSink creates the sink and starts connecting in the background. The paho client
// keeps retrying the connection, events emitted while disconnected are dropped.
func NewMQTTSink(opts MQTTOptions, log *logger.Logger) (*MQTTSink, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker address is required")
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "clockdash-" + uuid.NewString()[:8]
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(clientID)
	clientOpts.SetCleanSession(true)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetMaxReconnectInterval(time.Minute)
	clientOpts.SetKeepAlive(30 * time.Second)
	clientOpts.SetOnConnectHandler(func(mqtt.Client) {
		log.Debug("telemetry broker connected", "broker", opts.Broker)
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("telemetry broker connection lost", logger.Err(err))
	})

	client := mqtt.NewClient(clientOpts)
	_ = client.Connect()

	sink := newMQTTSink(client, opts.Topic, log)
	sink.client = client
	return sink, nil
}

func newMQTTSink(pub publisher, topic string, log *logger.Logger) *MQTTSink {
	topic = strings.TrimRight(topic, "/")
	if topic == "" {
		topic = "clockdash"
	}
	return &MQTTSink{publisher: pub, topic: topic, log: log}
}

func (s *MQTTSink) Emit(name string, payload map[string]any) {
	if s.client != nil && !s.client.IsConnectionOpen() {
		return
	}
	data, err := json.Marshal(Event{
		ID:      uuid.NewString(),
		Name:    name,
		At:      time.Now(),
		Payload: payload,
	})
	if err != nil {
		s.log.Debug("failed to encode telemetry event", logger.Err(err), "event", name)
		return
	}
	_ = s.publisher.Publish(fmt.Sprintf("%s/%s", s.topic, name), 0, false, data)
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	if s.client != nil {
		s.client.Disconnect(disconnectQuiesce)
	}
	return nil
}
