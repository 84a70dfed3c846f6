package audit

import (
	"context"
	"errors"
)

// Sink receives audit entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

type fallback struct {
	primary, secondary Sink
}

// Fallback writes to primary and falls back to secondary when primary
// fails.  The returned error is only non-nil when both fail.
func Fallback(primary, secondary Sink) Sink {
	return fallback{primary: primary, secondary: secondary}
}

func (f fallback) Write(ctx context.Context, e Entry) error {
	err := f.primary.Write(ctx, e)
	if err == nil {
		return nil
	}
	if err2 := f.secondary.Write(ctx, e); err2 != nil {
		return errors.Join(err, err2)
	}
	return nil
}
