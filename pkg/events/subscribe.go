package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/bookcatalog/pkg/logger"
)

// Handler processes one message. The context carries the publisher's trace.
type Handler func(context.Context, *message.Message) error

// Subscribe consumes topic in the bus's consumer group until ctx is
// cancelled. A nil handler result acks the message. A handler that keeps
// failing is nacked and its final error is sent on the returned channel,
// which callers must drain. Errors are dropped and logged when the channel
// is full.
func (b *EventBus) Subscribe(ctx context.Context, topic string, handler Handler) (<-chan error, error) {
	sub, err := b.sharedSubscriber()
	if err != nil {
		return nil, err
	}
	msgs, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe %s: %w", topic, err)
	}

	errCh := make(chan error, errBuffer)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(errCh)
		for msg := range msgs {
			msgCtx := messageContext(ctx, msg)
			err := runWithRetry(msgCtx, msg, handler, b.opts.maxRetries, b.opts.retryDelay, b.log)
			if err == nil {
				msg.Ack()
				continue
			}
			msg.Nack()
			select {
			case errCh <- err:
			default:
				b.log.ErrorContext(msgCtx, "events: error channel full, dropping error",
					"topic", topic, "message_uuid", msg.UUID, "error", err)
			}
		}
	}()
	return errCh, nil
}

func (b *EventBus) sharedSubscriber() (message.Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscriber == nil {
		sub, err := b.newSubscriber(b.opts.consumerGroup)
		if err != nil {
			return nil, err
		}
		b.subscriber = sub
	}
	return b.subscriber, nil
}

// runWithRetry runs handler up to attempts times, doubling the delay after
// each failure. It returns ctx.Err() if ctx ends while waiting.
func runWithRetry(
	ctx context.Context,
	msg *message.Message,
	handler Handler,
	attempts int,
	delay time.Duration,
	log logger.Logger,
) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("events: handler failed after %d attempts: %w", attempts, err)
		}
		log.WarnContext(ctx, "events: handler failed, retrying",
			"message_uuid", msg.UUID,
			"attempt", attempt,
			"next_delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
