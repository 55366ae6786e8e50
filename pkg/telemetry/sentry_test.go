package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghuser/bookcatalog/pkg/config"
)

func TestSetupSentry_NoDSNIsNoop(t *testing.T) {
	assert.NoError(t, SetupSentry(baseConfig()))
}

func TestSentryOptions(t *testing.T) {
	cfg := baseConfig()
	cfg.SentryDSN = "https://public@sentry.example.com/1"

	opts := sentryOptions(cfg)
	assert.Equal(t, "bookcatalog-test@test", opts.Release)
	assert.Equal(t, "bookcatalog-test", opts.ServerName)
	assert.Equal(t, config.StorageMemory, opts.Tags["storage"])
	assert.InDelta(t, 1.0, opts.TracesSampleRate, 0.0001)

	cfg.Environment = config.EnvProduction
	assert.InDelta(t, 0.2, sentryOptions(cfg).TracesSampleRate, 0.0001)
}

func TestSentryMiddleware_Repanics(t *testing.T) {
	h := SentryMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/books", http.NoBody))
	})
}

func TestCaptureError_WithoutClient(t *testing.T) {
	assert.NotPanics(t, func() {
		CaptureError(context.Background(), errors.New("unexpected"))
		CaptureError(context.Background(), nil)
	})
}
