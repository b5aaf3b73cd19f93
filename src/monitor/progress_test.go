package monitor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	var buf bytes.Buffer
	p := NewProgress(&buf, "sync")

	p.Report([]NodeStatus{
		{Alias: "leader1", Height: 12, Tip: "0123456789abcdef", Ok: true},
		{Alias: "passive", Height: 3, Tip: "ffff"},
		{Alias: "broken", Err: errors.New("connection refused")},
	})
	p.Success("converged in %s", "1s")
	p.Failure(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[sync]")
	assert.Contains(t, out, "leader1")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "error: connection refused")
	assert.Contains(t, out, "OK: converged in 1s")
	assert.Contains(t, out, "FAILED: boom")
	assert.Equal(t, 1, p.Reports())
}
