// internal/api/middleware.go
package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Webhook signature headers.
const (
	SignatureHeader = "X-Webhook-Signature"
	TimestampHeader = "X-Webhook-Timestamp"
)

const maxWebhookBody = 1 << 20

// SignWebhook returns the hex HMAC-SHA256 of "<timestamp>.<body>" under secret.
func SignWebhook(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature rejects requests whose signature does not match the raw body or whose
// Unix timestamp is more than maxSkew away from now. The body is restored for the next handler.
func WebhookSignature(secret string, maxSkew time.Duration, now func() time.Time, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := strings.TrimPrefix(r.Header.Get(SignatureHeader), "sha256=")
			timestamp := r.Header.Get(TimestampHeader)
			if signature == "" || timestamp == "" {
				unauthorized(w, "Webhook signature and timestamp are required")
				return
			}

			sent, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				unauthorized(w, "Invalid webhook timestamp")
				return
			}
			skew := now().Sub(time.Unix(sent, 0))
			if skew < 0 {
				skew = -skew
			}
			if skew > maxSkew {
				unauthorized(w, "Webhook timestamp is outside the allowed window")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Request body too large"})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !hmac.Equal([]byte(signature), []byte(SignWebhook(secret, timestamp, body))) {
				logger.Warn("Rejected webhook with invalid signature", "remote_addr", r.RemoteAddr)
				unauthorized(w, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
