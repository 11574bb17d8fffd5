package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/security"
	"github.com/storebridge/storebridge/utils"
)

const (
	HeaderInstanceID     = "X-Instance-ID"
	HeaderTimestamp      = "X-Timestamp"
	HeaderNonce          = "X-Nonce"
	HeaderSignature      = "X-Signature"
	HeaderIdempotencyKey = "X-Idempotency-Key"
)

type contextKey string

const (
	rawBodyKey        contextKey = "raw_body"
	idempotencyKeyKey contextKey = "idempotency_key"
	instanceIDKey     contextKey = "instance_id"
)

// RawBody returns the exact request bytes the signature was verified over.
func RawBody(ctx context.Context) []byte {
	if body, ok := ctx.Value(rawBodyKey).([]byte); ok {
		return body
	}
	return nil
}

func IdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(idempotencyKeyKey).(string); ok {
		return key
	}
	return ""
}

func InstanceID(ctx context.Context) string {
	if id, ok := ctx.Value(instanceIDKey).(string); ok {
		return id
	}
	return ""
}

// SignatureVerifier authenticates signed protocol requests. Checks run in a
// fixed order: headers present, instance known, signature valid, timestamp and
// nonce fresh. The nonce is consumed only after the signature passes, so a
// forged request cannot burn a nonce.
type SignatureVerifier struct {
	instanceID string
	secret     string
	guard      *security.ReplayGuard
	logger     *utils.Logger
}

func NewSignatureVerifier(instanceID, secret string, guard *security.ReplayGuard) *SignatureVerifier {
	return &SignatureVerifier{
		instanceID: instanceID,
		secret:     secret,
		guard:      guard,
		logger:     utils.NewLogger("signature"),
	}
}

func (v *SignatureVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		instanceID := r.Header.Get(HeaderInstanceID)
		timestamp := r.Header.Get(HeaderTimestamp)
		nonce := r.Header.Get(HeaderNonce)
		signature := r.Header.Get(HeaderSignature)

		if instanceID == "" || timestamp == "" || nonce == "" || signature == "" {
			v.reject(w, http.StatusBadRequest, "missing_headers")
			return
		}

		// The idempotency key rides on every signed request in both
		// directions, not just command deliveries.
		idempotencyKey := r.Header.Get(HeaderIdempotencyKey)
		if idempotencyKey == "" {
			v.reject(w, http.StatusBadRequest, "missing_idempotency_key")
			return
		}

		if instanceID != v.instanceID {
			v.logger.Warn(ctx, "Rejected unknown instance", map[string]interface{}{
				"instance_id": instanceID,
			})
			v.reject(w, http.StatusForbidden, "unknown_instance")
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			v.reject(w, http.StatusBadRequest, "unreadable_body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(rawBody))

		if !security.Verify(v.secret, timestamp, nonce, rawBody, signature) {
			v.logger.Warn(ctx, "Rejected bad signature", map[string]interface{}{
				"instance_id": instanceID,
			})
			v.reject(w, http.StatusUnauthorized, "invalid_signature")
			return
		}

		if err := v.guard.Accept(ctx, instanceID, timestamp, nonce); err != nil {
			switch {
			case errors.Is(err, security.ErrInvalidTimestamp):
				v.reject(w, http.StatusBadRequest, "invalid_timestamp")
			case errors.Is(err, security.ErrStaleTimestamp):
				v.reject(w, http.StatusConflict, "stale_timestamp")
			case errors.Is(err, security.ErrNonceReplayed):
				v.reject(w, http.StatusConflict, "nonce_replayed")
			default:
				utils.LogError(ctx, err, "Replay guard failure", nil)
				v.reject(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}

		ctx = context.WithValue(ctx, rawBodyKey, rawBody)
		ctx = context.WithValue(ctx, instanceIDKey, instanceID)
		ctx = context.WithValue(ctx, idempotencyKeyKey, idempotencyKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (v *SignatureVerifier) reject(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.RejectedAck(reason))
}
