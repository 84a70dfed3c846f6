package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends entries to daily files under a directory: every entry
// goes to cinema_api_<day>.log and errors additionally to errors_<day>.log.
// When Mirror is set each line is also written there (usually stdout).
type FileSink struct {
	dir    string
	Mirror io.Writer

	mu sync.Mutex
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Dir() string { return s.dir }

func generalFile(day string) string { return "cinema_api_" + day + ".log" }
func errorFile(day string) string   { return "errors_" + day + ".log" }

func (s *FileSink) Write(ctx context.Context, e Entry) error {
	line := e.Line() + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	if err := appendLine(filepath.Join(s.dir, generalFile(e.Day())), line); err != nil {
		return err
	}
	if e.Level == LevelError {
		if err := appendLine(filepath.Join(s.dir, errorFile(e.Day())), line); err != nil {
			return err
		}
	}
	if s.Mirror != nil {
		_, _ = io.WriteString(s.Mirror, line)
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
