package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/bookcatalog/pkg/config"
	"github.com/ghuser/bookcatalog/pkg/database/dbtest"
	"github.com/ghuser/bookcatalog/pkg/logger"
)

func TestEventBus_OutboxFollowsTransaction(t *testing.T) {
	db := dbtest.Setup(t)
	cfg := &config.Config{ServiceName: "bookcatalog-test", DatabaseURL: dbtest.DSN(t)}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	topic := "catalog_test_" + suffix

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pubBus, err := New(cfg, logger.Discard(), WithOutbox())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pubBus.Close() })
	require.NoError(t, pubBus.StartForwarder(ctx))

	subBus, err := New(cfg, logger.Discard(), WithConsumerGroup("test_"+suffix), WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = subBus.Close() })

	received := make(chan string, 4)
	errCh, err := subBus.Subscribe(ctx, topic, func(_ context.Context, msg *message.Message) error {
		received <- msg.Metadata.Get(MetaEventID)
		return nil
	})
	require.NoError(t, err)
	go func() {
		for range errCh {
		}
	}()

	aborted := errors.New("abort")
	err = db.WithTx(ctx, func(ctx context.Context) error {
		if err := pubBus.PublishJSON(ctx, topic, "rolled-back", map[string]string{"k": "v"}); err != nil {
			return err
		}
		return aborted
	})
	require.ErrorIs(t, err, aborted)

	require.NoError(t, db.WithTx(ctx, func(ctx context.Context) error {
		return pubBus.PublishJSON(ctx, topic, "committed", map[string]string{"k": "v"})
	}))

	select {
	case id := <-received:
		assert.Equal(t, "committed", id)
	case <-ctx.Done():
		t.Fatal("timed out waiting for the committed event")
	}
}
