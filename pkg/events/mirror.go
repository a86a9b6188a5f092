package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/confab/pkg/logging"
)

// ChannelSessionEvents is the Redis channel the mirror republishes every
// session event on.
const ChannelSessionEvents = "events.session.updates"

// envelope wraps an event for the Redis channel with source metadata, so
// out-of-process consumers can tell producers and schema versions apart.
type envelope struct {
	Source  string `json:"source"`
	Version string `json:"version"`
	Event
}

// Publisher mirrors session events to Redis pub/sub.
type Publisher struct {
	client *redis.Client
	logger logging.Logger
}

// PublisherConfig holds Redis connection configuration.
type PublisherConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port dial address, defaulting the port to 6379.
func (cfg PublisherConfig) Addr() string {
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", cfg.Host, port)
}

// NewPublisher creates a publisher over an existing Redis connection.
func NewPublisher(client *redis.Client, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Publisher{
		client: client,
		logger: logger.With(logging.F("component", "event_mirror")),
	}
}

// NewPublisherFromConfig creates a publisher with a new Redis connection,
// verifying it is reachable first.
func NewPublisherFromConfig(cfg PublisherConfig, logger logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPublisher(client, logger), nil
}

// Publish serializes one event and publishes it on the session channel.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(envelope{
		Source:  "confab",
		Version: "1.0",
		Event:   ev,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, ChannelSessionEvents, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", ChannelSessionEvents))
		return fmt.Errorf("failed to publish to %s: %w", ChannelSessionEvents, err)
	}

	p.logger.Debug("Event mirrored",
		logging.F("channel", ChannelSessionEvents),
		logging.F("event", string(ev.Type)),
		logging.F("payload_size", len(data)))

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
