package events

import (
	"context"
	"errors"
	"fmt"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
)

const forwarderGroup = "catalog-outbox-forwarder"

// ErrNoOutbox is returned by StartForwarder on a bus built without WithOutbox.
var ErrNoOutbox = errors.New("events: bus has no outbox")

// StartForwarder relays messages from the outbox topic to their target
// topics until ctx is cancelled or Close is called. It returns once the
// forwarder is running. Call it at most once.
func (b *EventBus) StartForwarder(ctx context.Context) error {
	if !b.opts.outbox {
		return ErrNoOutbox
	}
	b.mu.Lock()
	if b.fwd != nil {
		b.mu.Unlock()
		return errors.New("events: forwarder already started")
	}

	outbox, err := b.newSubscriber(forwarderGroup)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	target, err := watermillsql.NewPublisher(b.db, b.publisherConfig(true), b.wlog)
	if err != nil {
		b.mu.Unlock()
		_ = outbox.Close()
		return fmt.Errorf("events: new forwarder publisher: %w", err)
	}
	fwd, err := forwarder.NewForwarder(outbox, target, b.wlog, forwarder.Config{ForwarderTopic: outboxTopic})
	if err != nil {
		b.mu.Unlock()
		_ = target.Close()
		_ = outbox.Close()
		return fmt.Errorf("events: new forwarder: %w", err)
	}
	b.fwd = fwd
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.log.InfoContext(ctx, "events: forwarder started", "outbox_topic", outboxTopic)
		if err := fwd.Run(ctx); err != nil {
			b.log.ErrorContext(ctx, "events: forwarder stopped", "error", err)
			return
		}
		b.log.InfoContext(ctx, "events: forwarder stopped")
	}()

	select {
	case <-fwd.Running():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: waiting for forwarder: %w", ctx.Err())
	}
}
