package eviction_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"shuttle/internal/eviction"
)

func TestFlightRejectsConcurrentRuns(t *testing.T) {
	var flight eviction.Flight
	release := make(chan struct{})
	started := make(chan struct{})

	if !flight.TryStart(func() error {
		close(started)
		<-release
		return nil
	}) {
		t.Fatal("first TryStart should be admitted")
	}
	<-started

	if flight.TryStart(func() error { return nil }) {
		t.Error("second TryStart should be rejected while one is in flight")
	}

	close(release)
	if err := flight.Join(); err != nil {
		t.Errorf("Join returned error: %v", err)
	}

	if !flight.TryStart(func() error { return nil }) {
		t.Error("TryStart should be admitted after the previous run completed")
	}
	if err := flight.Join(); err != nil {
		t.Errorf("Join returned error: %v", err)
	}
}

func TestFlightHoldsFirstErrorUntilObserved(t *testing.T) {
	var flight eviction.Flight
	boom := errors.New("boom")

	flight.TryStart(func() error { return boom })
	if err := flight.Join(); !errors.Is(err, boom) {
		t.Fatalf("expected boom from Join, got %v", err)
	}
	if err := flight.Err(); err != nil {
		t.Errorf("error should be cleared once observed, got %v", err)
	}

	// A later successful run must not resurrect the old error.
	flight.TryStart(func() error { return nil })
	if err := flight.Join(); err != nil {
		t.Errorf("Join after clean run returned %v", err)
	}
}

func TestFlightErrIsNonBlocking(t *testing.T) {
	var flight eviction.Flight
	release := make(chan struct{})

	flight.TryStart(func() error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		flight.Err()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Err blocked on an in-flight run")
	}
	close(release)
	flight.Join()
}

func TestFlightJoinWaitsForCompletion(t *testing.T) {
	var flight eviction.Flight
	var finished atomic.Bool

	flight.TryStart(func() error {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	if err := flight.Join(); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if !finished.Load() {
		t.Error("Join returned before the run finished")
	}
}

func TestFlightJoinWithoutRun(t *testing.T) {
	var flight eviction.Flight
	if err := flight.Join(); err != nil {
		t.Errorf("Join on idle flight returned %v", err)
	}
}
