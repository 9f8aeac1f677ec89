package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"wx_decoder/internal/observability"
)

// Consumer subscribes to the feed subjects and pushes every payload through
// the handler. Reconnects are handled by the client; the initial connect
// retries with capped backoff until the context ends.
type Consumer struct {
	url      string
	subjects []string
	handler  *Handler
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewConsumer creates a Consumer for the given feed URL and subjects.
func NewConsumer(url string, subjects []string, h *Handler, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	return &Consumer{
		url:      url,
		subjects: subjects,
		handler:  h,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run connects, subscribes, and blocks until the context is cancelled. On
// shutdown in-flight messages are drained before returning.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.metrics.PipelineRunning.Set(1)
	defer c.metrics.PipelineRunning.Set(0)

	for _, subject := range c.subjects {
		sub := subject
		if _, err := conn.Subscribe(sub, func(msg *nats.Msg) {
			if err := c.handler.Handle(ctx, msg.Data); err != nil {
				c.logger.Warn("bulletin rejected", "subject", msg.Subject, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub, err)
		}
		c.logger.Info("subscribed", "subject", sub)
	}

	<-ctx.Done()
	c.logger.Info("consumer stopping", "reason", ctx.Err())

	// Drain lets callbacks for already-delivered messages finish.
	if err := conn.Drain(); err != nil {
		c.logger.Warn("drain failed", "error", err)
	}
	return nil
}

// connect dials the feed server, retrying with exponential backoff capped at
// 5s until it succeeds or the context ends.
func (c *Consumer) connect(ctx context.Context) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("wx_decoder-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("feed disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("feed reconnected", "url", nc.ConnectedUrl())
		}),
	}

	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		conn, err := nats.Connect(c.url, opts...)
		if err == nil {
			c.logger.Info("feed connected", "url", c.url)
			return conn, nil
		}

		c.logger.Error("feed connect failed", "url", c.url, "error", err)
		if !sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
