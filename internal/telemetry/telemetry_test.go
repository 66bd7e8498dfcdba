// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/wneessen/clockdash/internal/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Emit(name string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{}
}

type fakeToken struct{}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return nil }

func TestNop(t *testing.T) {
	Nop{}.Emit(EventWeatherLoaded, map[string]any{"provider": "open-meteo"})
}

func TestLogSink(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := logger.NewLogger(slog.LevelDebug, buf)
	NewLogSink(log).Emit(EventLocationResolved, map[string]any{"source": "ip"})
	out := buf.String()
	if !strings.Contains(out, "event=location_resolved") {
		t.Errorf("expected event name in log output, got %q", out)
	}
	if !strings.Contains(out, "source=ip") {
		t.Errorf("expected payload in log output, got %q", out)
	}
}

func TestMulti(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{}
	Multi{first, nil, second}.Emit(EventWeatherFailed, nil)
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Errorf("expected both sinks to receive the event, got %d and %d", len(first.events),
			len(second.events))
	}
}

func TestMQTTSink_Emit(t *testing.T) {
	pub := &fakePublisher{}
	sink := newMQTTSink(pub, "home/dashboard/", logger.NewLogger(slog.LevelError, bytes.NewBuffer(nil)))
	sink.Emit(EventWeatherLoaded, map[string]any{"provider": "weatherapi"})

	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.topic != "home/dashboard/weather_loaded" {
		t.Errorf("unexpected topic: %s", msg.topic)
	}
	if msg.qos != 0 || msg.retained {
		t.Errorf("expected QoS 0 without retain, got qos=%d retained=%t", msg.qos, msg.retained)
	}

	var event Event
	if err := json.Unmarshal(msg.payload, &event); err != nil {
		t.Fatalf("failed to decode published event: %s", err)
	}
	if _, err := uuid.Parse(event.ID); err != nil {
		t.Errorf("expected event id to be a UUID, got %q", event.ID)
	}
	if event.Name != EventWeatherLoaded {
		t.Errorf("expected event name %s, got %s", EventWeatherLoaded, event.Name)
	}
	if event.Payload["provider"] != "weatherapi" {
		t.Errorf("expected payload to be published, got %v", event.Payload)
	}
	if event.At.IsZero() {
		t.Error("expected event timestamp to be set")
	}
}

func TestMQTTSink_defaultTopic(t *testing.T) {
	pub := &fakePublisher{}
	sink := newMQTTSink(pub, "", logger.NewLogger(slog.LevelError, bytes.NewBuffer(nil)))
	sink.Emit(EventLocationFailed, nil)
	if len(pub.msgs) != 1 || pub.msgs[0].topic != "clockdash/location_failed" {
		t.Errorf("expected default topic, got %+v", pub.msgs)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("expected close without client to succeed, got %s", err)
	}
}

func TestNewMQTTSink(t *testing.T) {
	if _, err := NewMQTTSink(MQTTOptions{}, logger.NewLogger(slog.LevelError, bytes.NewBuffer(nil))); err == nil {
		t.Error("expected error without broker")
	}
}
