package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/bowenSteve/kipsunya-biz/api/responses"
	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	pkgredis "github.com/bowenSteve/kipsunya-biz/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotencyRule gates one POST route. Exact match when suffix is empty,
// prefix+suffix match otherwise (chi patterns keep path params in the middle).
type idempotencyRule struct {
	prefix string
	suffix string
	ttl    time.Duration
}

func (rule idempotencyRule) matches(pattern string) bool {
	if rule.suffix == "" {
		return pattern == rule.prefix
	}
	return strings.HasPrefix(pattern, rule.prefix) && strings.HasSuffix(pattern, rule.suffix)
}

// Money-moving routes keep their records for a week; the rest for a day.
var idempotencyRules = []idempotencyRule{
	{prefix: "/api/v1/auth/register", ttl: defaultIdempotencyTTL},
	{prefix: "/api/v1/notifications/", suffix: "/read", ttl: defaultIdempotencyTTL},
	{prefix: "/api/v1/notifications/read-all", ttl: defaultIdempotencyTTL},
	{prefix: "/api/v1/checkout", ttl: criticalIdempotencyTTL},
	{prefix: "/api/v1/orders/", suffix: "/status", ttl: criticalIdempotencyTTL},
	{prefix: "/api/v1/orders/", suffix: "/refunds", ttl: criticalIdempotencyTTL},
	{prefix: "/api/v1/refunds/", suffix: "/status", ttl: criticalIdempotencyTTL},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a POST arrives twice with the
// same Idempotency-Key, and rejects key reuse across different bodies.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := ruleTTL(r)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			bodyHash := hashBody(body)
			scope := strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			storeKey := store.IdempotencyKey(scope, clientKey)

			stored, getErr := store.Get(r.Context(), storeKey)
			if getErr != nil && !errors.Is(getErr, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				replayStored(r.Context(), logg, w, stored, bodyHash)
				return
			}

			capture := &bufferingWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			record := idempotencyRecord{
				Status:      capture.statusOrOK(),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				RequestHash: bodyHash,
			}
			if ct := capture.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}

			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				logError(r.Context(), logg, "marshal idempotency record", marshalErr)
				return
			}
			if _, setErr := store.SetNX(r.Context(), storeKey, string(payload), ttl); setErr != nil {
				logError(r.Context(), logg, "persist idempotency record", setErr)
			}
		})
	}
}

func ruleTTL(r *http.Request) (time.Duration, bool) {
	if r == nil || r.Method != http.MethodPost {
		return 0, false
	}
	pattern := r.URL.Path
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if p := routeCtx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	for _, rule := range idempotencyRules {
		if rule.matches(pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, bodyHash string) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != bodyHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type bufferingWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferingWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

func (b *bufferingWriter) statusOrOK() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
