package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATS публикует события в subject.<type>.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// ConnectNATS подключается к серверу NATS.
func ConnectNATS(url, subject string, logger *slog.Logger) (*NATS, error) {
	logger = logger.With("component", "events.NATS")

	conn, err := nats.Connect(url,
		nats.Name("noticeboard"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{conn: conn, subject: subject, logger: logger}, nil
}

func (n *NATS) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject+"."+string(event.Type), data)
}

// Close дожидается отправки буфера и закрывает соединение.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
