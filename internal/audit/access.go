package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// SlowRequest is the execution time above which a PERFORMANCE entry is
	// emitted next to the access entry.
	SlowRequest = time.Second
	// SlowOperation turns a PERFORMANCE entry into a WARNING.
	SlowOperation = 5 * time.Second

	masked = "***MASKED***"
)

var sensitiveFields = []string{"password", "token", "secret", "key"}

// Access describes one handled HTTP request.
type Access struct {
	Method    string
	Path      string
	Status    int
	RequestID string
	UserID    string
	Duration  time.Duration
	Request   any
	Response  map[string]any
	Error     string
	At        time.Time
}

// Entries returns the access entry and, for slow requests, the performance
// entry that follows it.
func (a Access) Entries() []Entry {
	data := map[string]any{
		"method":         a.Method,
		"endpoint":       a.Path,
		"status_code":    a.Status,
		"timestamp":      a.At.Format(time.RFC3339Nano),
		"execution_time": seconds(a.Duration),
	}
	if a.RequestID != "" {
		data["request_id"] = a.RequestID
	}
	if a.UserID != "" {
		data["user_id"] = a.UserID
	}
	if a.Request != nil {
		data["request_data"] = a.Request
	}
	if a.Response != nil {
		data["response_data"] = a.Response
	}
	if a.Error != "" {
		data["error_message"] = a.Error
	}

	level := LevelInfo
	if a.Status >= 400 {
		level = LevelError
	}
	out := []Entry{{
		Time:    a.At,
		Level:   level,
		Message: fmt.Sprintf("[%s] %s - Status: %d", a.Method, a.Path, a.Status),
		Data:    data,
	}}
	if a.Duration > SlowRequest {
		out = append(out, Performance(a.Method+" "+a.Path, a.Duration, map[string]any{"status_code": a.Status}, a.At))
	}
	return out
}

// Performance builds a timing entry for an operation.
func Performance(op string, d time.Duration, details map[string]any, at time.Time) Entry {
	data := map[string]any{
		"operation":      op,
		"execution_time": seconds(d),
		"timestamp":      at.Format(time.RFC3339Nano),
	}
	if details != nil {
		data["details"] = details
	}
	if d > SlowOperation {
		return Entry{
			Time:    at,
			Level:   LevelWarning,
			Message: fmt.Sprintf("SLOW_OPERATION - %s took %s", op, seconds(d)),
			Data:    data,
		}
	}
	return Entry{Time: at, Level: LevelInfo, Message: "PERFORMANCE - " + op, Data: data}
}

// MaskBody decodes a request body for logging.  Top-level sensitive fields
// of a JSON object are replaced; bodies that are not JSON yield a note.
func MaskBody(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]any{"note": "Non-JSON or binary data"}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, f := range sensitiveFields {
		if _, ok := obj[f]; ok {
			obj[f] = masked
		}
	}
	return obj
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
