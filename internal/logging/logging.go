// Package logging configures the logrus logger used by the dyndns command.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out.
// Debug messages are only written when verbose is set.
func New(out io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&Formatter{})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Formatter writes one line per entry: the timestamp, the message,
// and then any fields as key=value pairs sorted by key.
type Formatter struct {
	// TimestampFormat defaults to time.RFC3339.
	TimestampFormat string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339
	}
	b := entry.Buffer
	if b == nil {
		b = new(bytes.Buffer)
	}

	b.WriteString(entry.Time.Format(layout))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
