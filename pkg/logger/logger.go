package logger

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
)

// Formatter renders logrus entries as
//
//	2006-01-02T15:04:05 [prefix] LEVEL: message key=value ...
//
// with the level colored: warn yellow, error red, debug green.
type Formatter struct {
	// Prefix for logs
	Prefix string
	// Disable colors regardless of terminal detection
	NoColor bool
}

func New(prefix string) *Formatter {
	return &Formatter{Prefix: prefix}
}

func levelColor(level log.Level) *color.Color {
	switch level {
	case log.WarnLevel:
		return color.New(color.FgYellow)
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return color.New(color.FgRed)
	case log.DebugLevel, log.TraceLevel:
		return color.New(color.FgGreen)
	default:
		return color.New(color.Reset)
	}
}

func (f *Formatter) Format(e *log.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(e.Time.Format(time.RFC3339))
	b.WriteByte(' ')
	if f.Prefix != "" {
		fmt.Fprintf(&b, "[%s] ", f.Prefix)
	}

	level := fmt.Sprintf("%s:", levelName(e.Level))
	if f.NoColor {
		b.WriteString(level)
	} else {
		c := levelColor(e.Level)
		c.EnableColor()
		b.WriteString(c.Sprint(level))
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(level log.Level) string {
	switch level {
	case log.WarnLevel:
		return "WARN"
	default:
		return strings.ToUpper(level.String())
	}
}
