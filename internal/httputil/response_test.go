package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]bool{"success": true})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadRequest, "No log message provided")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"No log message provided"}`, rr.Body.String())
}

func TestWriteErrorDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteErrorDetails(rr, http.StatusInternalServerError, "Failed to save log", "disk full")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Failed to save log", body.Error)
	assert.Equal(t, "disk full", body.Details)
}

func TestWriteText(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteText(rr, http.StatusOK, "line one\n")

	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "line one\n", rr.Body.String())
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded for takes first entry",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"},
			remoteAddr: "10.0.0.1:5555",
			want:       "203.0.113.195",
		},
		{
			name:       "real ip",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr: "10.0.0.1:5555",
			want:       "198.51.100.7",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.20:43210",
			want:       "192.168.1.20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
