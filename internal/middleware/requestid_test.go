package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{
			name:              "generates new request ID when not present",
			existingRequestID: "",
			expectNewID:       true,
		},
		{
			name:              "propagates existing request ID",
			existingRequestID: "controller-req-42",
			expectNewID:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedRequestID string

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedRequestID = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.existingRequestID != "" {
				req.Header.Set(RequestIDHeader, tt.existingRequestID)
			}
			rr := httptest.NewRecorder()

			RequestID(handler).ServeHTTP(rr, req)

			if capturedRequestID == "" {
				t.Fatal("expected request ID in context")
			}
			if got := rr.Header().Get(RequestIDHeader); got != capturedRequestID {
				t.Errorf("response header = %q, context = %q", got, capturedRequestID)
			}

			if tt.expectNewID {
				if _, err := uuid.Parse(capturedRequestID); err != nil {
					t.Errorf("generated request ID %q is not a UUID: %v", capturedRequestID, err)
				}
			} else if capturedRequestID != tt.existingRequestID {
				t.Errorf("request ID = %q, want %q", capturedRequestID, tt.existingRequestID)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
