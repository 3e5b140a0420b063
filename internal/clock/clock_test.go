package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockNowIsUTC(t *testing.T) {
	now := RealClock{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2018, time.December, 15, 12, 0, 0, 0, time.UTC)
	mock := NewMockClock(start)
	assert.Equal(t, start, mock.Now())

	mock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), mock.Now())

	later := start.Add(24 * time.Hour)
	mock.Set(later)
	assert.Equal(t, later, mock.Now())
}

func TestMockClockNormalizesToUTC(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}
	mock := NewMockClock(time.Date(2018, time.December, 15, 13, 0, 0, 0, paris))
	assert.Equal(t, time.UTC, mock.Now().Location())
	assert.Equal(t, 12, mock.Now().Hour())
}
