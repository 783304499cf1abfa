package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"tether/pkg/logging"
)

// DefaultSubject is the NATS subject events are published on.
const DefaultSubject = "tether.graph.events"

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	nc        *nats.Conn
	subject   string
	templates *MessageTemplateEngine
}

// NewNATSPublisher connects to url. An empty subject selects DefaultSubject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	opts := []nats.Option{
		nats.Name("tether"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logging.Warn("Events", "NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("Events", "NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject, templates: NewMessageTemplateEngine()}, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.nc == nil || p.nc.IsClosed() {
		return errors.New("nats not connected")
	}

	if evt.Message == "" {
		evt.Message = p.templates.Render(evt)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set("Tether-Event-Type", string(evt.Type))
	msg.Header.Set("Tether-Severity", string(severityFor(evt.Type)))
	return p.nc.PublishMsg(msg)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc.Close()
	return err
}
