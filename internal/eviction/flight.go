package eviction

import "sync"

// Flight admits at most one enforcement pass at a time. A trigger that
// arrives while a pass is running is dropped, not queued; the sync loop
// triggers again after the next transfer anyway. The first failure is held
// until someone observes it through Err or Join.
type Flight struct {
	mu      sync.Mutex
	running bool
	done    chan struct{}
	err     error
}

// TryStart launches run on a new goroutine unless one is already in
// flight. It reports whether the run was admitted.
func (f *Flight) TryStart(run func() error) bool {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return false
	}
	f.running = true
	done := make(chan struct{})
	f.done = done
	f.mu.Unlock()

	go func() {
		err := run()
		f.mu.Lock()
		f.running = false
		if err != nil && f.err == nil {
			f.err = err
		}
		close(done)
		f.mu.Unlock()
	}()
	return true
}

// Join waits for the in-flight run, if any, then returns and clears the
// held error. It is the shutdown drain: a caller that exits after Join
// knows no pass is still touching the destination.
func (f *Flight) Join() error {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		<-done
	}
	return f.Err()
}

// Err returns and clears the held error without waiting.
func (f *Flight) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.err
	f.err = nil
	return err
}
