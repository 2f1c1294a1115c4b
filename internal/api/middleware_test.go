package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSignature(t *testing.T) {
	const secret = "station-secret"
	const body = `{"card_number":"4111111111111111","amount":"25.00"}`
	now := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seenBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
		w.WriteHeader(http.StatusOK)
	})
	handler := WebhookSignature(secret, 5*time.Minute, func() time.Time { return now }, logger)(next)

	send := func(signature, timestamp, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/transaction", strings.NewReader(payload))
		if signature != "" {
			req.Header.Set(SignatureHeader, signature)
		}
		if timestamp != "" {
			req.Header.Set(TimestampHeader, timestamp)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}
	ts := strconv.FormatInt(now.Unix(), 10)

	t.Run("Valid", func(t *testing.T) {
		seenBody = ""
		rec := send(SignWebhook(secret, ts, []byte(body)), ts, body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, seenBody)
	})

	t.Run("PrefixedSignature", func(t *testing.T) {
		rec := send("sha256="+SignWebhook(secret, ts, []byte(body)), ts, body)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("WithinSkew", func(t *testing.T) {
		early := strconv.FormatInt(now.Add(-4*time.Minute).Unix(), 10)
		rec := send(SignWebhook(secret, early, []byte(body)), early, body)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Rejected", func(t *testing.T) {
		stale := strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10)
		future := strconv.FormatInt(now.Add(6*time.Minute).Unix(), 10)
		cases := map[string]*httptest.ResponseRecorder{
			"missing signature": send("", ts, body),
			"missing timestamp": send(SignWebhook(secret, ts, []byte(body)), "", body),
			"bad timestamp":     send(SignWebhook(secret, "yesterday", []byte(body)), "yesterday", body),
			"stale":             send(SignWebhook(secret, stale, []byte(body)), stale, body),
			"future":            send(SignWebhook(secret, future, []byte(body)), future, body),
			"wrong secret":      send(SignWebhook("other", ts, []byte(body)), ts, body),
			"tampered body":     send(SignWebhook(secret, ts, []byte(body)), ts, strings.Replace(body, "25.00", "2.50", 1)),
		}
		for name, rec := range cases {
			t.Run(name, func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Contains(t, rec.Body.String(), "error")
			})
		}
	})
}
