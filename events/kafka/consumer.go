package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// SpinEventHandler receives each decoded spin event from the topic.
type SpinEventHandler func(event SpinEvent)

// TenantFilter decides whether a tenant's events should be processed.
// Returns true to process, false to skip.
type TenantFilter func(tenantID string) bool

// Consumer reads spin events from Kafka and hands them to a handler. It is
// used to mirror wins from other instances into the local winner feed.
type Consumer struct {
	reader  *kafka.Reader
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler SpinEventHandler

	mu           sync.RWMutex
	tenantFilter TenantFilter
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Logger        zerolog.Logger
}

// NewConsumer creates a new Kafka consumer delivering events to handler.
func NewConsumer(config ConsumerConfig, handler SpinEventHandler) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{
		reader:  reader,
		logger:  config.Logger.With().Str("component", "kafka-consumer").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
	}
}

// Start begins consuming messages
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	c.logger.Info().Msg("Kafka consumer started")
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info().Msg("Stopping Kafka consumer...")
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return err
	}

	c.logger.Info().Msg("Kafka consumer stopped")
	return nil
}

// SetTenantFilter sets a filter to skip events from tenants this instance
// does not serve. Nil processes everything.
func (c *Consumer) SetTenantFilter(filter TenantFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenantFilter = filter
}

// consume is the main consumer loop
func (c *Consumer) consume() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			msg, err := c.reader.FetchMessage(c.ctx)
			if err != nil {
				if err == context.Canceled {
					return
				}
				c.logger.Error().Err(err).Msg("Error fetching message from Kafka")
				time.Sleep(time.Second)
				continue
			}

			if err := c.handleMessage(msg); err != nil {
				c.logger.Error().
					Err(err).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error handling message")
			}

			if err := c.reader.CommitMessages(c.ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("Error committing message")
			}
		}
	}
}

// handleMessage decodes and dispatches a single Kafka message
func (c *Consumer) handleMessage(msg kafka.Message) error {
	var event SpinEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}

	c.mu.RLock()
	shouldProcess := c.tenantFilter == nil || c.tenantFilter(event.TenantID)
	c.mu.RUnlock()

	if !shouldProcess {
		c.logger.Debug().
			Str("tenant_id", event.TenantID).
			Msg("Skipping spin event (tenant not served here)")
		return nil
	}

	if c.handler != nil {
		c.handler(event)
	}
	return nil
}
