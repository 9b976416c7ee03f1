package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldBytes     = "bytes"
	FieldError     = "error"
	FieldKind      = "event_kind"
	FieldTimestamp = "event_timestamp"
	FieldFile      = "file"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IP returns a slog attribute for the client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Bytes returns a slog attribute for a byte count.
func Bytes(n int64) slog.Attr {
	return slog.Int64(FieldBytes, n)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// EventKind returns a slog attribute for the kind of history event.
func EventKind(kind string) slog.Attr {
	return slog.String(FieldKind, kind)
}

// EventTimestamp returns a slog attribute for an event's server timestamp.
func EventTimestamp(ts string) slog.Attr {
	return slog.String(FieldTimestamp, ts)
}

// File returns a slog attribute for a file path.
func File(path string) slog.Attr {
	return slog.String(FieldFile, path)
}
