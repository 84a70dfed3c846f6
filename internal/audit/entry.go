// Package audit records API access and performance entries and reads them
// back for the diagnostics endpoints.  Entries are rendered as one text line
// per record: "<time> - cinema_api - <LEVEL> - <message> - {json}".
package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is the severity of an entry.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Levels lists the severities in the order stats are reported.
var Levels = []Level{LevelInfo, LevelWarning, LevelError}

const (
	loggerName = "cinema_api"
	timeLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006_01_02"
)

// Entry is one audit record.  Data is appended to the line as a JSON object.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   Level          `json:"level"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Line renders the entry without a trailing newline.
func (e Entry) Line() string {
	line := fmt.Sprintf("%s - %s - %s - %s", e.Time.Format(timeLayout), loggerName, e.Level, e.Message)
	if len(e.Data) == 0 {
		return line
	}
	b, err := json.Marshal(e.Data)
	if err != nil {
		return line
	}
	return line + " - " + string(b)
}

// Day is the date part of the file names the entry belongs to.
func (e Entry) Day() string { return e.Time.Format(dayLayout) }
