package requestid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/requestid"
)

// serve runs the middleware and returns the id seen by the handler along
// with the response header.
func serve(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/subscription/checkout", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("keeps a well-formed incoming id", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"edge-7f3a", "lb_42", "550e8400-e29b-41d4-a716-446655440000"} {
			seen, echoed := serve(t, id)
			assert.Equal(t, id, seen)
			assert.Equal(t, id, echoed)
		}
	})

	t.Run("replaces missing or malformed ids with a uuid", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"", "has space", "a/b", "<script>", strings.Repeat("x", 129)} {
			seen, echoed := serve(t, id)
			assert.Equal(t, seen, echoed, id)
			assert.NotEqual(t, id, seen, id)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err, id)
		}
	})

	t.Run("accepts the maximum length", func(t *testing.T) {
		t.Parallel()
		id := strings.Repeat("x", 128)
		seen, _ := serve(t, id)
		assert.Equal(t, id, seen)
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "req-1", requestid.FromContext(requestid.WithContext(context.Background(), "req-1")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	t.Run("no id in context", func(t *testing.T) {
		t.Parallel()
		_, ok := requestid.LoggerExtractor()(context.Background())
		assert.False(t, ok)
	})

	t.Run("records logged in a handler carry the echoed id", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(requestid.LoggerExtractor()),
		)

		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.ErrorContext(r.Context(), "failed to create checkout session")
			w.WriteHeader(http.StatusInternalServerError)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscription/checkout", nil))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, rec.Header().Get(requestid.Header), entry["request_id"])
		assert.Equal(t, "failed to create checkout session", entry["msg"])
	})
}
