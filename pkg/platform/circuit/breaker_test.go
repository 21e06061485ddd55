package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreaker(t *testing.T) {
	newBreaker := func() (*Breaker, *fakeClock) {
		clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		return New("backend",
			WithFailureThreshold(3),
			WithSuccessThreshold(2),
			WithOpenTimeout(5*time.Second),
			WithClock(clock.now),
		), clock
	}

	t.Run("opens after consecutive failures", func(t *testing.T) {
		b, _ := newBreaker()
		assert.Equal(t, StateChange{}, b.RecordFailure())
		assert.Equal(t, StateChange{}, b.RecordFailure())
		assert.True(t, b.RecordFailure().Opened)
		assert.True(t, b.IsOpen())
		assert.False(t, b.Allow())
	})

	t.Run("success resets the failure streak", func(t *testing.T) {
		b, _ := newBreaker()
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("probes after open timeout and closes on successes", func(t *testing.T) {
		b, clock := newBreaker()
		for range 3 {
			b.RecordFailure()
		}
		clock.advance(4 * time.Second)
		assert.False(t, b.Allow())

		clock.advance(time.Second)
		assert.True(t, b.Allow())
		assert.Equal(t, StateHalfOpen, b.State())

		assert.False(t, b.RecordSuccess().Closed)
		assert.True(t, b.RecordSuccess().Closed)
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		b, clock := newBreaker()
		for range 3 {
			b.RecordFailure()
		}
		clock.advance(5 * time.Second)
		assert.True(t, b.Allow())
		assert.True(t, b.RecordFailure().Opened)
		assert.False(t, b.Allow())
	})

	t.Run("reset closes", func(t *testing.T) {
		b, _ := newBreaker()
		for range 3 {
			b.RecordFailure()
		}
		b.Reset()
		assert.True(t, b.Allow())
		assert.Equal(t, "closed", b.State().String())
	})
}
