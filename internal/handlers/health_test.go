package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	logger := zap.NewNop().Sugar()
	down := errors.New("connection refused")

	tests := []struct {
		name       string
		db         Pinger
		complaints Pinger
		wantCode   int
		wantBody   string
	}{
		{"all up", stubPinger{}, stubPinger{}, http.StatusOK, `"status":"ready"`},
		{"in-memory complaint store", stubPinger{}, nil, http.StatusOK, `"complaints":"in-memory"`},
		{"database down", stubPinger{err: down}, stubPinger{}, http.StatusServiceUnavailable, `"database":"disconnected"`},
		{"complaint store down", stubPinger{}, stubPinger{err: down}, http.StatusServiceUnavailable, `"complaints":"disconnected"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.complaints, logger)
			req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
			rec := httptest.NewRecorder()
			h.Ready(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHealthCheckAlwaysOK(t *testing.T) {
	h := NewHealthHandler(stubPinger{err: errors.New("down")}, nil, zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
