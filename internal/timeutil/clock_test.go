package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMockClock(t *testing.T) {
	t.Parallel()

	c := NewMockClock(epoch)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch, c.Now(), "frozen clock does not move")

	c.Advance(time.Minute)
	assert.Equal(t, epoch.Add(time.Minute), c.Now())
	assert.Equal(t, time.Minute, c.Since(epoch))

	c.Set(epoch)
	assert.Zero(t, c.Since(epoch))
}

func TestSteppingClock(t *testing.T) {
	t.Parallel()

	c := NewSteppingClock(epoch, time.Second)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(time.Second), c.Now())
	assert.Equal(t, 2*time.Second, c.Since(epoch))
}

func TestRealClock(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	before := time.Now()
	assert.False(t, c.Now().Before(before))
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))
}
