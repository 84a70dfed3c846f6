package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/audit"
)

// Audit records every request to sink: method, path, status, execution
// time, request id, the masked body of POST/PUT/PATCH requests and a short
// response summary.  Requests slower than audit.SlowRequest also produce a
// performance entry.  Sink failures are logged and never fail the request.
func Audit(sink audit.Sink) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			res.Header().Set(echo.HeaderXRequestID, rid)

			var body any
			switch req.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				body = captureBody(req)
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			rec := audit.Access{
				Method:    req.Method,
				Path:      req.URL.Path,
				Status:    res.Status,
				RequestID: rid,
				UserID:    UserID(c),
				Duration:  time.Since(start),
				Request:   body,
				Response:  responseSummary(res),
				At:        start,
			}
			if res.Status >= 400 {
				rec.Error = fmt.Sprintf("HTTP %d error", res.Status)
			}
			for _, e := range rec.Entries() {
				if err := sink.Write(req.Context(), e); err != nil {
					c.Logger().Errorf("audit: write entry: %v", err)
				}
			}
			return nil
		}
	}
}

// captureBody reads the request body and puts it back for the handler.
func captureBody(req *http.Request) any {
	if req.Body == nil {
		return nil
	}
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return map[string]any{"note": "Could not capture request data"}
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	if len(b) == 0 {
		return nil
	}
	return audit.MaskBody(b)
}

func responseSummary(res *echo.Response) map[string]any {
	ct := res.Header().Get(echo.HeaderContentType)
	switch {
	case res.Status >= 200 && res.Status < 300:
		if strings.Contains(ct, echo.MIMEApplicationJSON) {
			ct = echo.MIMEApplicationJSON
		}
		return map[string]any{"content_type": ct, "status": "success"}
	case res.Status >= 400:
		return map[string]any{"content_type": ct, "status": "error"}
	}
	return nil
}
