package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	run := func(t *testing.T, inbound string) (*httptest.ResponseRecorder, string) {
		t.Helper()
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set("X-Request-ID", inbound)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec, seen
	}

	t.Run("generates an ID when none is supplied", func(t *testing.T) {
		rec, seen := run(t, "")
		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("honors a sane inbound ID", func(t *testing.T) {
		rec, seen := run(t, "trace-42")
		assert.Equal(t, "trace-42", seen)
		assert.Equal(t, "trace-42", rec.Header().Get("X-Request-ID"))
	})

	t.Run("replaces an oversized inbound ID", func(t *testing.T) {
		huge := strings.Repeat("x", maxInboundIDLength+1)
		rec, seen := run(t, huge)
		assert.NotEqual(t, huge, seen)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}

func TestMaxBodyBytes(t *testing.T) {
	// The inner handler drains the body the way a JSON decoder would, so a
	// MaxBytesReader cap surfaces as a read error.
	drain := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects an oversized declared body", func(t *testing.T) {
		handler := MaxBodyBytes(8)(drain)
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("way more than eight"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "request body too large")
	})

	t.Run("passes a body under the limit", func(t *testing.T) {
		handler := MaxBodyBytes(64)(drain)
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("caps a body with no declared length", func(t *testing.T) {
		handler := MaxBodyBytes(8)(drain)
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("way more than eight"))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("zero limit disables the middleware", func(t *testing.T) {
		handler := MaxBodyBytes(0)(drain)
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1024)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
