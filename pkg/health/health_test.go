package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func ready(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLivenessHandler(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("storage", down)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUp, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		storage  Checker
		saleor   Checker
		wantCode int
		want     Status
	}{
		{"all up", up, up, http.StatusOK, StatusUp},
		{"backend down degrades", up, down, http.StatusOK, StatusDegraded},
		{"storage down", down, up, http.StatusServiceUnavailable, StatusDown},
		{"both down", down, down, http.StatusServiceUnavailable, StatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			h.RegisterCritical("storage", tt.storage)
			h.RegisterNonCritical("saleor", tt.saleor)

			code, resp := ready(t, h)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.want, resp.Status)
			assert.True(t, resp.Checks["storage"].Critical)
			assert.False(t, resp.Checks["saleor"].Critical)
		})
	}
}

func TestReadinessHandler_ReportsCheckError(t *testing.T) {
	h := NewHandler()
	h.RegisterNonCritical("saleor", down)

	_, resp := ready(t, h)

	assert.Equal(t, StatusDown, resp.Checks["saleor"].Status)
	assert.Equal(t, "connection refused", resp.Checks["saleor"].Error)
}

func TestReadinessHandler_NoCheckers(t *testing.T) {
	code, resp := ready(t, NewHandler())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}

func TestRegister_IsCriticalAndOverwrites(t *testing.T) {
	h := NewHandler()
	h.Register("storage", up)
	h.Register("storage", down)

	code, resp := ready(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Len(t, resp.Checks, 1)
	assert.True(t, resp.Checks["storage"].Critical)
}

func TestReadinessHandler_RunsChecksConcurrently(t *testing.T) {
	h := NewHandler()
	var inFlight, peak atomic.Int32
	slow := func(context.Context) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	h.RegisterCritical("storage", slow)
	h.RegisterNonCritical("saleor", slow)

	code, _ := ready(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int32(2), peak.Load())
}

func TestReadinessHandler_CheckerSeesDeadline(t *testing.T) {
	h := NewHandler()
	h.RegisterNonCritical("saleor", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline on probe context")
		}
		return nil
	})

	_, resp := ready(t, h)

	assert.Equal(t, StatusUp, resp.Checks["saleor"].Status)
}
