package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/cinema-management-api/internal/repository"
)

const (
	maxRecentLines  = 1000
	statsMaxFileMB  = 10
	maxRecentErrors = 10
	totalSizeWarnMB = 100
	currentWarnMB   = 50
)

var methods = []string{"GET", "POST", "PUT", "DELETE"}

// Diagnostics inspects the log directory written by FileSink.
type Diagnostics struct {
	dir string
	now func() time.Time
}

func NewDiagnostics(dir string) *Diagnostics {
	return &Diagnostics{dir: dir, now: time.Now}
}

type FileInfo struct {
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	SizeMB       float64   `json:"size_mb"`
	LastModified time.Time `json:"last_modified"`
	Type         string    `json:"type"`
}

type FilesResult struct {
	LogFiles      []FileInfo `json:"log_files"`
	TotalFiles    int        `json:"total_files"`
	LogsDirectory string     `json:"logs_directory"`
	Message       string     `json:"message,omitempty"`
}

type RecentQuery struct {
	Lines   int    `json:"lines"`
	LogType string `json:"log_type,omitempty"`
	Level   string `json:"level,omitempty"`
}

// LogLine is a parsed log line.  Lines that do not follow the entry format
// only carry Message and RawLine.
type LogLine struct {
	Timestamp *string `json:"timestamp"`
	Logger    *string `json:"logger"`
	Level     *string `json:"level"`
	Message   string  `json:"message"`
	Data      any     `json:"data"`
	RawLine   string  `json:"raw_line"`
}

type RecentResult struct {
	Logs           []LogLine   `json:"logs"`
	TotalLines     int         `json:"total_lines"`
	FileUsed       string      `json:"file_used,omitempty"`
	FiltersApplied RecentQuery `json:"filters_applied"`
	Message        string      `json:"message,omitempty"`
}

type Stats struct {
	TotalFiles   int            `json:"total_files"`
	TotalSizeMB  float64        `json:"total_size_mb"`
	ByLevel      map[string]int `json:"by_level"`
	ByEndpoint   map[string]int `json:"by_endpoint"`
	ByDay        map[string]int `json:"by_day"`
	RecentErrors []string       `json:"recent_errors"`
	Message      string         `json:"message,omitempty"`
}

type DeletedFile struct {
	Filename     string    `json:"filename"`
	SizeMB       float64   `json:"size_mb"`
	LastModified time.Time `json:"last_modified"`
}

type CleanResult struct {
	DeletedFiles       []DeletedFile `json:"deleted_files"`
	TotalDeleted       int           `json:"total_deleted"`
	TotalSizeDeletedMB float64       `json:"total_size_deleted_mb"`
	CutoffDate         time.Time     `json:"cutoff_date"`
	Message            string        `json:"message,omitempty"`
}

type Health struct {
	Status              string   `json:"status"`
	Issues              []string `json:"issues"`
	LogsDirectoryExists bool     `json:"logs_directory_exists"`
	LogsWritable        bool     `json:"logs_writable"`
	CurrentLogSizeMB    float64  `json:"current_log_size_mb"`
	TotalLogsSizeMB     float64  `json:"total_logs_size_mb"`
}

func (d *Diagnostics) exists() bool {
	st, err := os.Stat(d.dir)
	return err == nil && st.IsDir()
}

func (d *Diagnostics) logFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(d.dir, "*.log"))
}

// Files lists the log files, newest first.
func (d *Diagnostics) Files() (FilesResult, error) {
	res := FilesResult{LogFiles: []FileInfo{}, LogsDirectory: d.dir}
	if !d.exists() {
		res.Message = "logs directory does not exist yet"
		return res, nil
	}
	paths, err := d.logFiles()
	if err != nil {
		return res, err
	}
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		name := filepath.Base(p)
		typ := "general"
		if strings.Contains(name, "error") {
			typ = "error"
		}
		res.LogFiles = append(res.LogFiles, FileInfo{
			Filename:     name,
			SizeBytes:    st.Size(),
			SizeMB:       toMB(st.Size()),
			LastModified: st.ModTime(),
			Type:         typ,
		})
	}
	sort.Slice(res.LogFiles, func(i, j int) bool {
		return res.LogFiles[i].LastModified.After(res.LogFiles[j].LastModified)
	})
	res.TotalFiles = len(res.LogFiles)
	return res, nil
}

// Recent returns the last q.Lines lines of today's general or error file,
// optionally keeping only one level.
func (d *Diagnostics) Recent(q RecentQuery) (RecentResult, error) {
	res := RecentResult{Logs: []LogLine{}, FiltersApplied: q}
	if q.Lines < 1 || q.Lines > maxRecentLines {
		return res, fmt.Errorf("%w: lines must be between 1 and %d", repository.ErrInvalidInput, maxRecentLines)
	}
	if !d.exists() {
		res.Message = "no logs available yet"
		return res, nil
	}
	day := d.now().Format(dayLayout)
	name := generalFile(day)
	if q.LogType == "error" {
		name = errorFile(day)
	}
	path := filepath.Join(d.dir, name)
	res.FileUsed = path

	lines, err := readLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		res.Message = fmt.Sprintf("log file %s not found", path)
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if len(lines) > q.Lines {
		lines = lines[len(lines)-q.Lines:]
	}
	for _, l := range lines {
		if q.Level != "" && !strings.Contains(l, " - "+q.Level+" - ") {
			continue
		}
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		res.Logs = append(res.Logs, ParseLine(l))
	}
	res.TotalLines = len(res.Logs)
	return res, nil
}

// ParseLine splits a rendered entry back into its parts.
func ParseLine(line string) LogLine {
	parts := strings.SplitN(line, " - ", 4)
	if len(parts) < 4 {
		return LogLine{Message: line, RawLine: line}
	}
	out := LogLine{
		Timestamp: &parts[0],
		Logger:    &parts[1],
		Level:     &parts[2],
		Message:   parts[3],
		RawLine:   line,
	}
	if i := strings.Index(out.Message, " - {"); i >= 0 {
		var data any
		if err := json.Unmarshal([]byte(out.Message[i+3:]), &data); err == nil {
			out.Data = data
			out.Message = out.Message[:i]
		}
	}
	return out
}

// Stats counts lines per level, endpoint and day over every log file
// smaller than 10MB.
func (d *Diagnostics) Stats() (Stats, error) {
	st := Stats{
		ByLevel:      map[string]int{},
		ByEndpoint:   map[string]int{},
		ByDay:        map[string]int{},
		RecentErrors: []string{},
	}
	for _, l := range Levels {
		st.ByLevel[string(l)] = 0
	}
	if !d.exists() {
		st.Message = "no logs available yet"
		return st, nil
	}
	paths, err := d.logFiles()
	if err != nil {
		return st, err
	}
	var totalMB float64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		st.TotalFiles++
		sizeMB := float64(info.Size()) / (1024 * 1024)
		totalMB += sizeMB

		name := filepath.Base(p)
		day, general := strings.CutPrefix(strings.TrimSuffix(name, ".log"), "cinema_api_")
		if _, seen := st.ByDay[day]; general && !seen {
			st.ByDay[day] = 0
		}
		if sizeMB >= statsMaxFileMB {
			continue
		}
		lines, err := readLines(p)
		if err != nil {
			continue
		}
		for _, l := range lines {
			if general {
				st.ByDay[day]++
			}
			for _, lv := range Levels {
				if strings.Contains(l, " - "+string(lv)+" - ") {
					st.ByLevel[string(lv)]++
					break
				}
			}
			if ep, ok := endpointOf(l); ok {
				st.ByEndpoint[ep]++
			}
			if strings.Contains(l, " - ERROR - ") && len(st.RecentErrors) < maxRecentErrors {
				st.RecentErrors = append(st.RecentErrors, strings.TrimSpace(l))
			}
		}
	}
	st.TotalSizeMB = round2(totalMB)
	return st, nil
}

func endpointOf(line string) (string, bool) {
	for _, m := range methods {
		tag := " [" + m + "] "
		i := strings.Index(line, tag)
		if i < 0 {
			continue
		}
		start := i + len(tag)
		end := strings.Index(line[start:], " - Status:")
		if end <= 0 {
			return "", false
		}
		return m + " " + line[start:start+end], true
	}
	return "", false
}

// Clean removes log files last modified more than days ago.
func (d *Diagnostics) Clean(days int) (CleanResult, error) {
	if days < 1 {
		return CleanResult{}, fmt.Errorf("%w: days_older_than must be at least 1", repository.ErrInvalidInput)
	}
	cutoff := d.now().Add(-time.Duration(days) * 24 * time.Hour)
	res := CleanResult{DeletedFiles: []DeletedFile{}, CutoffDate: cutoff}
	if !d.exists() {
		res.Message = "logs directory does not exist"
		return res, nil
	}
	paths, err := d.logFiles()
	if err != nil {
		return res, err
	}
	var deleted int64
	var errs []error
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
			continue
		}
		res.DeletedFiles = append(res.DeletedFiles, DeletedFile{
			Filename:     filepath.Base(p),
			SizeMB:       toMB(info.Size()),
			LastModified: info.ModTime(),
		})
		deleted += info.Size()
	}
	res.TotalDeleted = len(res.DeletedFiles)
	res.TotalSizeDeletedMB = toMB(deleted)
	return res, errors.Join(errs...)
}

// Health reports whether the directory exists and is writable and flags
// oversized logs.  One issue is a warning, more than one an error.
func (d *Diagnostics) Health() Health {
	h := Health{Status: "healthy", Issues: []string{}}
	if !d.exists() {
		h.Issues = append(h.Issues, "logs directory does not exist")
	} else {
		h.LogsDirectoryExists = true
		probe := filepath.Join(d.dir, "test_write.tmp")
		if err := os.WriteFile(probe, []byte("test"), 0o644); err != nil {
			h.Issues = append(h.Issues, fmt.Sprintf("logs directory is not writable: %v", err))
		} else {
			_ = os.Remove(probe)
			h.LogsWritable = true
		}

		if info, err := os.Stat(filepath.Join(d.dir, generalFile(d.now().Format(dayLayout)))); err == nil {
			h.CurrentLogSizeMB = toMB(info.Size())
		}
		var total int64
		if paths, err := d.logFiles(); err == nil {
			for _, p := range paths {
				if info, err := os.Stat(p); err == nil {
					total += info.Size()
				}
			}
		}
		h.TotalLogsSizeMB = toMB(total)

		if h.TotalLogsSizeMB > totalSizeWarnMB {
			h.Issues = append(h.Issues, "logs take too much space (>100MB)")
		}
		if h.CurrentLogSizeMB > currentWarnMB {
			h.Issues = append(h.Issues, "current log is too large (>50MB)")
		}
	}
	switch {
	case len(h.Issues) == 1:
		h.Status = "warning"
	case len(h.Issues) > 1:
		h.Status = "error"
	}
	return h
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func toMB(n int64) float64 { return round2(float64(n) / (1024 * 1024)) }

func round2(f float64) float64 { return math.Round(f*100) / 100 }
