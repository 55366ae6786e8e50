package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/bookcatalog/pkg/database"
)

// Metadata keys set on every published message.
const (
	MetaEventID       = "event_id"
	MetaEventType     = "event_type"
	MetaSchemaVersion = "schema_version"
	MetaContentType   = "content_type"
)

// SchemaVersion is stamped on every message so consumers can reject payloads
// they do not understand.
const SchemaVersion = 1

// PublishJSON encodes event as JSON and publishes it on topic. Inside a
// database.WithTx callback the message is written through that transaction.
func (b *EventBus) PublishJSON(ctx context.Context, topic, eventID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", topic, err)
	}
	msg := newMessage(ctx, topic, eventID, payload)

	pub := b.publisher
	if tx, ok := database.TxFromContext(ctx); ok {
		if pub, err = b.txPublisher(tx); err != nil {
			return err
		}
	}
	if err := pub.Publish(topic, msg); err != nil { //nolint:contextcheck
		return fmt.Errorf("events: publish %s: %w", topic, err)
	}
	return nil
}

// txPublisher binds a publisher to tx. The schema already exists once the bus
// is up, so it is not initialized again inside the caller's transaction.
func (b *EventBus) txPublisher(tx *sql.Tx) (message.Publisher, error) {
	pub, err := watermillsql.NewPublisher(tx, b.publisherConfig(false), b.wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new tx publisher: %w", err)
	}
	return b.routed(pub), nil
}

func newMessage(ctx context.Context, topic, eventID string, payload []byte) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaEventID, eventID)
	msg.Metadata.Set(MetaEventType, topic)
	msg.Metadata.Set(MetaSchemaVersion, strconv.Itoa(SchemaVersion))
	msg.Metadata.Set(MetaContentType, "application/json")
	msg.SetContext(ctx)

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Metadata.Set(k, v)
	}
	return msg
}

// messageContext restores the publisher's trace context onto parent.
func messageContext(parent context.Context, msg *message.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(parent, propagation.MapCarrier(msg.Metadata))
}
