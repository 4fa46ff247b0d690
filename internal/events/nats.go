package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vbonduro/propertydesk/internal/listing"
)

const subjectPrefix = "properties."

type deletedPayload struct {
	ID string `json:"id"`
}

// Publisher sends listing changes to NATS on properties.created,
// properties.updated and properties.deleted.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("propertydesk"),
		nats.Timeout(5 * time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("nats error", "subject", subject, "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("connected to nats", "url", nc.ConnectedUrl())
	return &Publisher{nc: nc, logger: logger}, nil
}

func (p *Publisher) Notify(ctx context.Context, c listing.Change) error {
	subject, data, err := encodeChange(c)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	p.logger.Debug("published listing change", "subject", subject, "listing_id", c.ID)
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *Publisher) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Error("failed to drain nats connection", "error", err)
		p.nc.Close()
	}
}

func encodeChange(c listing.Change) (string, []byte, error) {
	subject := subjectPrefix + string(c.Kind)

	var payload any = deletedPayload{ID: c.ID}
	if c.Kind != listing.Deleted && c.Listing != nil {
		payload = c.Listing
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s payload: %w", subject, err)
	}
	return subject, data, nil
}
