package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWindow(t *testing.T) {
	from := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	w := NewWindow(from)

	assert.Equal(t, from, w.From)
	assert.Equal(t, time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC), w.To)
	assert.Equal(t, "[2023-01-01T10:00:00Z, 2023-01-02T10:00:00Z)", w.String())
}

func TestWindow_Contains(t *testing.T) {
	w := NewWindow(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, w.Contains(w.From), "lower bound is inclusive")
	assert.True(t, w.Contains(w.To.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.To), "upper bound is exclusive")
	assert.False(t, w.Contains(w.From.Add(-time.Second)))
}
