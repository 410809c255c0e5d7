// Package logtail reads the tail of the QuizWhiz log file and renders its
// JSON lines for a terminal.
package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Tail returns at most n lines from the end of the file at path. A missing
// file yields no lines.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % n
		if count < n {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == n {
		for i := range count {
			lines[i] = ring[(idx+i)%n]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one decoded log line.
type Entry struct {
	Time    time.Time
	Level   zerolog.Level
	Message string
	Error   string
	Fields  map[string]string
}

// Parse decodes a zerolog JSON line. Lines that are not JSON objects are
// returned as the message with no level.
func Parse(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Level: zerolog.NoLevel, Message: line}
	}
	e := Entry{Level: zerolog.NoLevel, Fields: map[string]string{}}
	for k, v := range raw {
		s := fmt.Sprint(v)
		switch k {
		case zerolog.TimestampFieldName:
			e.Time, _ = time.Parse(time.RFC3339, s)
		case zerolog.LevelFieldName:
			if lvl, err := zerolog.ParseLevel(s); err == nil {
				e.Level = lvl
			}
		case zerolog.MessageFieldName:
			e.Message = s
		case zerolog.ErrorFieldName:
			e.Error = s
		case "app":
		default:
			e.Fields[k] = s
		}
	}
	return e
}

var levelStyles = map[zerolog.Level]lipgloss.Style{
	zerolog.TraceLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#71839b")),
	zerolog.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#71839b")),
	zerolog.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#63cdcf")),
	zerolog.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#dbc074")).Bold(true),
	zerolog.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d")).Bold(true),
	zerolog.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d")).Bold(true),
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#738091"))
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#719cd6"))
)

// Format renders e on one line: time, level, message, error, then the
// remaining fields sorted by key.
func Format(e Entry) string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(timeStyle.Render(e.Time.Format("15:04:05")))
		b.WriteByte(' ')
	}
	if e.Level != zerolog.NoLevel {
		label := fmt.Sprintf("%-5s", strings.ToUpper(e.Level.String()))
		if st, ok := levelStyles[e.Level]; ok {
			label = st.Render(label)
		}
		b.WriteString(label)
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)
	if e.Error != "" {
		b.WriteString(" ")
		b.WriteString(levelStyles[zerolog.ErrorLevel].Render("error=" + e.Error))
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(fieldStyle.Render(k + "="))
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

// Filter keeps entries at or above min. Unleveled lines always pass.
func Filter(lines []string, min zerolog.Level) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if e.Level != zerolog.NoLevel && e.Level < min {
			continue
		}
		out = append(out, e)
	}
	return out
}
