package node

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Log levels as written by the node in its JSON records.
const (
	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// LogLine is one line of the node's stderr. Level and Msg are empty when the
// line is not a JSON record.
type LogLine struct {
	Raw    string
	Level  string
	Msg    string
	Fields map[string]interface{}
	Time   time.Time
}

// Structured reports whether the line was parsed as a JSON record.
func (l LogLine) Structured() bool {
	return l.Fields != nil
}

func parseLogLine(raw string) LogLine {
	line := LogLine{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return line
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return line
	}

	line.Fields = fields
	line.Level = strings.ToLower(firstString(fields, "level", "lvl"))
	line.Msg = firstString(fields, "msg", "message")
	if ts := firstString(fields, "ts", "time"); ts != "" {
		line.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return line
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok {
			return v
		}
	}
	return ""
}

// LogBuffer keeps the last lines written by a process. It is safe for
// concurrent use.
type LogBuffer struct {
	mu      sync.Mutex
	lines   []LogLine
	next    int
	full    bool
	dropped uint64
}

// NewLogBuffer returns a LogBuffer keeping at most capacity lines.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &LogBuffer{lines: make([]LogLine, capacity)}
}

// Append adds a raw line to the buffer, evicting the oldest one if needed.
func (b *LogBuffer) Append(raw string) {
	line := parseLogLine(raw)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.full {
		b.dropped++
	}
	b.lines[b.next] = line
	b.next++
	if b.next == len(b.lines) {
		b.next = 0
		b.full = true
	}
}

// MaxLineLength is the length above which captured lines are cut.
const MaxLineLength = 1024 * 1024

// TruncatedMarker ends every captured line longer than MaxLineLength.
const TruncatedMarker = " [truncated]"

// Capture reads r line by line until EOF or a read error. Lines longer than
// MaxLineLength are cut and marked, the rest of them is discarded.
func (b *LogBuffer) Capture(r io.Reader) error {
	reader := bufio.NewReaderSize(r, 64*1024)

	var (
		line      []byte
		truncated bool
	)
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if len(chunk) > 0 && !truncated {
			if room := MaxLineLength - len(line); len(chunk) > room {
				line = append(line, chunk[:room]...)
				truncated = true
			} else {
				line = append(line, chunk...)
			}
		}

		if err != nil {
			if len(line) > 0 || truncated {
				b.appendCaptured(line, truncated)
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		if !isPrefix {
			b.appendCaptured(line, truncated)
			line = line[:0]
			truncated = false
		}
	}
}

func (b *LogBuffer) appendCaptured(line []byte, truncated bool) {
	s := string(line)
	if truncated {
		s += TruncatedMarker
	}
	b.Append(s)
}

// Lines returns the buffered lines, oldest first.
func (b *LogBuffer) Lines() []LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]LogLine(nil), b.lines[:b.next]...)
	}
	res := make([]LogLine, 0, len(b.lines))
	res = append(res, b.lines[b.next:]...)
	return append(res, b.lines[:b.next]...)
}

// Dropped returns the number of lines evicted from the buffer.
func (b *LogBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Tail returns the last n raw lines, oldest first.
func (b *LogBuffer) Tail(n int) []string {
	lines := b.Lines()
	if n >= 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	res := make([]string, len(lines))
	for i, l := range lines {
		res[i] = l.Raw
	}
	return res
}

// String returns the whole buffer as text.
func (b *LogBuffer) String() string {
	return strings.Join(b.Tail(-1), "\n")
}

// LinesWithLevel returns the structured lines logged at level.
func (b *LogBuffer) LinesWithLevel(level string) []LogLine {
	return b.Matching(level, nil)
}

// Matching returns the lines at level whose message or raw text matches re.
// An empty level matches every line, structured or not, and a nil re matches
// everything.
func (b *LogBuffer) Matching(level string, re *regexp.Regexp) []LogLine {
	level = strings.ToLower(level)
	res := []LogLine{}
	for _, l := range b.Lines() {
		if level != "" && l.Level != level {
			continue
		}
		if re != nil && !re.MatchString(l.Msg) && !re.MatchString(l.Raw) {
			continue
		}
		res = append(res, l)
	}
	return res
}

// ErrorLines returns the lines logged at error or fatal level.
func (b *LogBuffer) ErrorLines() []LogLine {
	res := []LogLine{}
	for _, l := range b.Lines() {
		if l.Level == LevelError || l.Level == LevelFatal {
			res = append(res, l)
		}
	}
	return res
}

// Contains reports whether a line at level has msg as message and, when field
// is not empty, a field value containing it.
func (b *LogBuffer) Contains(level, msg, field string) bool {
	for _, l := range b.LinesWithLevel(level) {
		if l.Msg != msg {
			continue
		}
		if field == "" {
			return true
		}
		for k, v := range l.Fields {
			if k == "msg" || k == "message" || k == "level" || k == "lvl" {
				continue
			}
			if s, ok := v.(string); ok && strings.Contains(s, field) {
				return true
			}
		}
	}
	return false
}
