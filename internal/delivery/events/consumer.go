package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

const (
	fetchBatchSize = 10
	fetchMaxWait   = 5 * time.Second
	fetchErrDelay  = 5 * time.Second
)

// Handler processes the payload of one event
type Handler func(data []byte) error

// Consumer handles consuming events from NATS
type Consumer struct {
	nc     *nats.Conn
	logger *logger.Logger
	sub    *nats.Subscription
}

// NewConsumer creates a new NATS consumer
func NewConsumer(cfg *config.Config, log *logger.Logger) (*Consumer, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{
		nc:     nc,
		logger: log,
	}, nil
}

// Subscribe subscribes to a NATS subject and processes messages
func (c *Consumer) Subscribe(subject string, handler Handler) error {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		c.logger.Debugf("Received message on subject %s", subject)

		if err := handler(msg.Data); err != nil {
			c.logger.Errorf(err, "Failed to handle message on subject %s", subject)
		}
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	c.sub = sub
	c.logger.Infof("Subscribed to NATS subject: %s", subject)
	return nil
}

// Close closes the NATS connection
func (c *Consumer) Close() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warnf("Failed to unsubscribe from NATS: %v", err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// FetchLoop pulls batches from a durable pull subscription until ctx is cancelled.
// Handled messages are acked; failed ones are nacked for redelivery with backoff.
func FetchLoop(ctx context.Context, sub *nats.Subscription, handler Handler, log *logger.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, fetchMaxWait)
		msgs, err := sub.Fetch(fetchBatchSize, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Error("Failed to fetch messages from JetStream", err)
			select {
			case <-time.After(fetchErrDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range msgs {
			if err := handler(msg.Data); err != nil {
				log.Error("Failed to handle event", err)
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error("Failed to NACK message", nakErr)
				}
				continue
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Error("Failed to ACK message", ackErr)
			}
		}
	}
}

// LoggingHandler creates a simple handler that logs all product events
func LoggingHandler(log *logger.Logger) Handler {
	return func(data []byte) error {
		var event domain.ProductEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal event", err)
			return err
		}

		prettyJSON, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			log.Error("Failed to marshal pretty JSON", err)
			return err
		}

		log.WithFields(map[string]interface{}{
			"event_type": event.EventType,
			"product_id": event.ProductID,
		}).Infof("Received event:\n%s", string(prettyJSON))
		return nil
	}
}
