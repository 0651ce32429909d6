package logging

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Message: "Public IP is 1.2.3.4.",
		Data:    logrus.Fields{"zone": "example.com", "change_id": "C1"},
	}

	b, err := (&Formatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:30:00Z Public IP is 1.2.3.4. change_id=C1 zone=example.com\n", string(b))
}

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer

	l := New(&buf, false)
	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	l = New(&buf, true)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
