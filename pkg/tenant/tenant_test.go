package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evocloud/jobqueue/pkg/tenant"
)

func TestContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		ctx := tenant.WithID(context.Background(), id)

		got, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("missing tenant", func(t *testing.T) {
		t.Parallel()

		_, ok := tenant.IDFromContext(context.Background())
		assert.False(t, ok)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := tenant.LoggerExtractor()

	id := uuid.New()
	attr, ok := extract(tenant.WithID(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, "tenant_id", attr.Key)
	assert.Equal(t, id.String(), attr.Value.String())

	_, ok = extract(context.Background())
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	newHandler := func(captured *uuid.UUID, scoped *bool) http.Handler {
		return tenant.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := tenant.IDFromContext(r.Context())
			*captured = id
			*scoped = ok
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("scopes request with valid header", func(t *testing.T) {
		t.Parallel()

		var captured uuid.UUID
		var scoped bool
		handler := newHandler(&captured, &scoped)

		id := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.HeaderName, id.String())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, scoped)
		assert.Equal(t, id, captured)
	})

	t.Run("passes through without header", func(t *testing.T) {
		t.Parallel()

		var captured uuid.UUID
		var scoped bool
		handler := newHandler(&captured, &scoped)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, scoped)
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		t.Parallel()

		var captured uuid.UUID
		var scoped bool
		handler := newHandler(&captured, &scoped)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.HeaderName, "not-a-uuid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, scoped)
	})
}
