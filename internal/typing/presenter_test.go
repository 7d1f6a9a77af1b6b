package typing

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevealCompleteness(t *testing.T) {
	p := NewPresenter(time.Millisecond)

	var mu sync.Mutex
	var ticks []string
	done := make(chan string, 1)

	full := "Hello there, traveler."
	p.Reveal("c1", full,
		func(partial string) {
			mu.Lock()
			ticks = append(ticks, partial)
			mu.Unlock()
		},
		func(got string) { done <- got },
	)

	select {
	case got := <-done:
		assert.Equal(t, full, got)
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, ticks)
	// Strictly growing prefixes ending at the full text.
	prev := ""
	for _, partial := range ticks {
		assert.True(t, strings.HasPrefix(partial, prev), "tick %q does not extend %q", partial, prev)
		assert.Greater(t, len(partial), len(prev))
		assert.True(t, strings.HasPrefix(full, partial))
		prev = partial
	}
	assert.Equal(t, full, ticks[len(ticks)-1])
}

func TestRevealMultibyteText(t *testing.T) {
	p := NewPresenter(time.Millisecond)

	done := make(chan string, 1)
	full := "héllo — ñice"
	p.Reveal("c1", full, nil, func(got string) { done <- got })

	select {
	case got := <-done:
		assert.Equal(t, full, got)
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not complete")
	}
}

func TestCancelSuppressesComplete(t *testing.T) {
	p := NewPresenter(5 * time.Millisecond)

	completed := make(chan string, 1)
	p.Reveal("c1", strings.Repeat("x", 10000), nil, func(got string) { completed <- got })

	time.Sleep(20 * time.Millisecond)
	p.Cancel("c1")

	select {
	case got := <-completed:
		t.Fatalf("cancelled reveal completed with %q", got)
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, p.Active("c1"))
}

func TestNewRevealReplacesRunningOne(t *testing.T) {
	p := NewPresenter(5 * time.Millisecond)

	firstDone := make(chan string, 1)
	secondDone := make(chan string, 1)

	p.Reveal("c1", strings.Repeat("a", 10000), nil, func(got string) { firstDone <- got })
	time.Sleep(20 * time.Millisecond)
	p.Reveal("c1", "short", nil, func(got string) { secondDone <- got })

	select {
	case got := <-secondDone:
		assert.Equal(t, "short", got)
	case <-time.After(5 * time.Second):
		t.Fatal("replacement reveal did not complete")
	}

	select {
	case got := <-firstDone:
		t.Fatalf("replaced reveal completed with %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRevealsIndependentAcrossKeys(t *testing.T) {
	p := NewPresenter(time.Millisecond)

	doneA := make(chan string, 1)
	doneB := make(chan string, 1)
	p.Reveal("a", "first", nil, func(got string) { doneA <- got })
	p.Reveal("b", "second", nil, func(got string) { doneB <- got })

	for i := 0; i < 2; i++ {
		select {
		case got := <-doneA:
			assert.Equal(t, "first", got)
			doneA = nil
		case got := <-doneB:
			assert.Equal(t, "second", got)
			doneB = nil
		case <-time.After(5 * time.Second):
			t.Fatal("reveals did not complete")
		}
	}
}
