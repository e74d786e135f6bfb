package game_test

import (
	"sync"
	"testing"
	"time"

	"quizroom/internal/game"
)

func TestCountdownTicksDown(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	done := make(chan struct{})

	game.StartCountdown(3, time.Millisecond,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(done) },
	)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("countdown never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 3 || ticks[0] != 3 || ticks[1] != 2 || ticks[2] != 1 {
		t.Fatalf("unexpected tick sequence: %v", ticks)
	}
}

func TestCountdownStopSuppressesCallbacks(t *testing.T) {
	var mu sync.Mutex
	fired := 0

	c := game.StartCountdown(1000, 50*time.Millisecond,
		func(int) {
			mu.Lock()
			fired++
			mu.Unlock()
		},
		func() { t.Errorf("completion fired after stop") },
	)

	// Let the immediate first tick land, then stop.
	time.Sleep(10 * time.Millisecond)
	c.Stop()
	c.Stop() // must be safe to repeat

	mu.Lock()
	seen := fired
	mu.Unlock()

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != seen {
		t.Fatalf("ticks kept firing after stop: %d then %d", seen, fired)
	}
}

func TestCountdownZeroSecondsCompletesImmediately(t *testing.T) {
	done := make(chan struct{})
	game.StartCountdown(0, time.Millisecond, nil, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("zero-second countdown never completed")
	}
}
