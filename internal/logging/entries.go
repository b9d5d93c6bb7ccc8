package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Entry is one parsed line of the JSON log.
type Entry struct {
	Time     time.Time      `json:"time"`
	Level    string         `json:"level"`
	Message  string         `json:"msg"`
	ReportID string         `json:"report_id,omitempty"`
	Stage    string         `json:"stage,omitempty"`
	Substep  string         `json:"substep,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries. Zero fields match everything; set fields are ANDed.
type Filter struct {
	// Level keeps entries at or above this level.
	Level    string
	Since    time.Time
	ReportID string
	Stage    string
	Contains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var entryFields = map[string]bool{
	"time": true, "level": true, "msg": true,
	"report_id": true, "stage": true, "substep": true,
}

// ReadEntries parses {logDir}/debug.log on fs. Unparseable lines are skipped.
// Entries are returned in time order.
func ReadEntries(fs afero.Fs, logDir string) ([]Entry, error) {
	f, err := fs.Open(filepath.Join(logDir, LogFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if e, err := parseEntry(line); err == nil {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	str := func(k string) string {
		s, _ := raw[k].(string)
		return s
	}
	e := Entry{
		Level:    str("level"),
		Message:  str("msg"),
		ReportID: str("report_id"),
		Stage:    str("stage"),
		Substep:  str("substep"),
	}
	if t, err := time.Parse(time.RFC3339Nano, str("time")); err == nil {
		e.Time = t
	}
	for k, v := range raw {
		if entryFields[k] {
			continue
		}
		if e.Attrs == nil {
			e.Attrs = make(map[string]any)
		}
		e.Attrs[k] = v
	}
	return e, nil
}

// Matches reports whether e passes f.
func (f Filter) Matches(e Entry) bool {
	if f.Level != "" {
		want, okWant := levelOrder[strings.ToUpper(f.Level)]
		got, okGot := levelOrder[e.Level]
		if okWant && okGot && got < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.ReportID != "" && e.ReportID != f.ReportID {
		return false
	}
	if f.Stage != "" && e.Stage != f.Stage {
		return false
	}
	if f.Contains != "" && !strings.Contains(e.Message, f.Contains) {
		return false
	}
	return true
}

// FilterEntries returns the entries that match f.
func FilterEntries(entries []Entry, f Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// WriteText renders entries one per line:
//
//	[2025-01-02 15:04:05.000] INFO  stage completed (report=…, stage=…/review) {"elapsed_ms":12}
func WriteText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %-5s %s", e.Time.Format("2006-01-02 15:04:05.000"), e.Level, e.Message)

		var ctx []string
		if e.ReportID != "" {
			ctx = append(ctx, "report="+e.ReportID)
		}
		if e.Stage != "" {
			target := e.Stage
			if e.Substep != "" {
				target += "/" + e.Substep
			}
			ctx = append(ctx, "stage="+target)
		}
		if len(ctx) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
		}
		if len(e.Attrs) > 0 {
			attrs, _ := json.Marshal(e.Attrs)
			b.WriteString(" ")
			b.Write(attrs)
		}
		b.WriteString("\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("failed to write log entry: %w", err)
		}
	}
	return nil
}
