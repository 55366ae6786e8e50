package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/bookcatalog/pkg/events"
	"github.com/ghuser/bookcatalog/pkg/logger"
	catalogEvents "github.com/ghuser/bookcatalog/services/catalog/domain/events"
)

func TestHandleCatalogEvent_WithoutCacheLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	h := handleCatalogEvent(logger.NewWithWriter(&buf, "info"), nil, catalogEvents.TopicBookRegistered)

	evt := catalogEvents.BookEvent{EventID: uuid.New(), Version: 1, BookID: uuid.New(), Title: "Go in Action"}
	payload, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := h(context.Background(), message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(buf.String(), evt.EventID.String()) {
		t.Errorf("expected event id in log output, got: %s", buf.String())
	}
}

func TestHandleCatalogEvent_MalformedPayloadIsAcked(t *testing.T) {
	var buf bytes.Buffer
	h := handleCatalogEvent(logger.NewWithWriter(&buf, "info"), nil, catalogEvents.TopicAuthorUpdated)

	if err := h(context.Background(), message.NewMessage(watermill.NewUUID(), []byte("{not json"))); err != nil {
		t.Fatalf("expected nil error for undecodable payload, got %v", err)
	}
	if !strings.Contains(buf.String(), "undecodable catalog event") {
		t.Errorf("expected decode failure to be logged, got: %s", buf.String())
	}
}

func TestHandleCatalogEvent_UnknownSchemaVersionIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	h := handleCatalogEvent(logger.NewWithWriter(&buf, "info"), nil, catalogEvents.TopicBookUpdated)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"event_id":"e-1"}`))
	msg.Metadata.Set(events.MetaSchemaVersion, "99")

	if err := h(context.Background(), msg); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(buf.String(), "unknown schema version") {
		t.Errorf("expected skip to be logged, got: %s", buf.String())
	}
	if strings.Contains(buf.String(), "catalog event received") {
		t.Errorf("handler should not process the event, got: %s", buf.String())
	}
}
