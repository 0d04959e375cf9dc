package eviction_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shuttle/internal/eviction"
	"shuttle/internal/logging"
	"shuttle/internal/remote"
	"shuttle/internal/testsupport"
)

type fakeRemote struct {
	entries   []remote.Entry
	listErr   error
	listCalls int
	ops       []string
	zeroErr   error
	deleteErr error
}

func (f *fakeRemote) List(ctx context.Context) ([]remote.Entry, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]remote.Entry(nil), f.entries...), nil
}

func (f *fakeRemote) Exists(ctx context.Context, relPath string) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeRemote) Move(ctx context.Context, batch remote.Batch) error {
	return errors.New("not used")
}

func (f *fakeRemote) Delete(ctx context.Context, relPath string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.ops = append(f.ops, "delete:"+relPath)
	return nil
}

func (f *fakeRemote) Zero(ctx context.Context, relPath string) error {
	if f.zeroErr != nil {
		return f.zeroErr
	}
	f.ops = append(f.ops, "zero:"+relPath)
	return nil
}

func (f *fakeRemote) Purge(ctx context.Context, relPath string) error {
	f.ops = append(f.ops, "purge:"+relPath)
	return nil
}

func entry(path string, size int64, modTime time.Time) remote.Entry {
	return remote.Entry{Path: path, Size: size, ModTime: modTime}
}

func TestEnforcePassEvictsOldestUntilBelowQuota(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rem := &fakeRemote{entries: []remote.Entry{
		entry("a.mp4", 100, base.Add(2*time.Hour)),
		entry("b.mp4", 100, base.Add(time.Hour)),
		entry("old.mp4", 100, base),
	}}
	engine := eviction.NewEngine(rem, 250, nil, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("EnforcePass returned error: %v", err)
	}

	want := []string{"zero:old.mp4", "purge:old.mp4", "delete:old.mp4"}
	if fmt.Sprint(rem.ops) != fmt.Sprint(want) {
		t.Errorf("unexpected operations:\n got %v\nwant %v", rem.ops, want)
	}
	if rem.listCalls != 1 {
		t.Errorf("expected a single listing per pass, got %d", rem.listCalls)
	}
}

func TestEnforcePassEvictsMultipleInAgeOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rem := &fakeRemote{entries: []remote.Entry{
		entry("newest.mp4", 100, base.Add(3*time.Hour)),
		entry("middle.mp4", 100, base.Add(time.Hour)),
		entry("oldest.mp4", 100, base),
	}}
	engine := eviction.NewEngine(rem, 150, nil, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("EnforcePass returned error: %v", err)
	}

	want := []string{
		"zero:oldest.mp4", "purge:oldest.mp4", "delete:oldest.mp4",
		"zero:middle.mp4", "purge:middle.mp4", "delete:middle.mp4",
	}
	if fmt.Sprint(rem.ops) != fmt.Sprint(want) {
		t.Errorf("unexpected operations:\n got %v\nwant %v", rem.ops, want)
	}
	if rem.listCalls != 1 {
		t.Errorf("expected a single listing per pass, got %d", rem.listCalls)
	}
}

func TestEnforcePassEvictsAtExactQuota(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rem := &fakeRemote{entries: []remote.Entry{
		entry("a.mp4", 100, base.Add(time.Hour)),
		entry("b.mp4", 150, base),
	}}
	engine := eviction.NewEngine(rem, 250, nil, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("EnforcePass returned error: %v", err)
	}
	if len(rem.ops) != 3 || rem.ops[0] != "zero:b.mp4" {
		t.Errorf("usage equal to quota should evict, got %v", rem.ops)
	}
}

func TestEnforcePassBelowQuotaNoOp(t *testing.T) {
	rem := &fakeRemote{entries: []remote.Entry{
		entry("a.mp4", 100, time.Now()),
	}}
	engine := eviction.NewEngine(rem, 250, nil, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("EnforcePass returned error: %v", err)
	}
	if len(rem.ops) != 0 {
		t.Errorf("expected no operations below quota, got %v", rem.ops)
	}
}

func TestEnforcePassTieBreaksOnPath(t *testing.T) {
	same := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rem := &fakeRemote{entries: []remote.Entry{
		entry("zz.mp4", 100, same),
		entry("aa.mp4", 100, same),
	}}
	engine := eviction.NewEngine(rem, 150, nil, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("EnforcePass returned error: %v", err)
	}
	if len(rem.ops) == 0 || rem.ops[0] != "zero:aa.mp4" {
		t.Errorf("expected lexicographic tie-break, got %v", rem.ops)
	}
}

func TestEnforcePassSkipsOnListingFailure(t *testing.T) {
	rem := &fakeRemote{listErr: errors.New("remote unreachable")}
	engine := eviction.NewEngine(rem, 250, nil, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("listing failure should skip the pass, got %v", err)
	}
	if len(rem.ops) != 0 {
		t.Errorf("expected no operations, got %v", rem.ops)
	}
}

func TestEnforcePassReturnsOperationFailure(t *testing.T) {
	boom := errors.New("zero failed")
	rem := &fakeRemote{
		entries: []remote.Entry{entry("old.mp4", 300, time.Now())},
		zeroErr: boom,
	}
	engine := eviction.NewEngine(rem, 250, nil, logging.NewNop())

	err := engine.EnforcePass(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected zero failure returned, got %v", err)
	}
	if len(rem.ops) != 0 {
		t.Errorf("no further operations should run after a failure, got %v", rem.ops)
	}
}

func TestEnforcePassRecordsEvictions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rem := &fakeRemote{entries: []remote.Entry{
		entry("a.mp4", 100, base.Add(2*time.Hour)),
		entry("b.mp4", 100, base.Add(time.Hour)),
		entry("old.mp4", 100, base),
	}}
	engine := eviction.NewEngine(rem, 250, store, logging.NewNop())

	if err := engine.EnforcePass(context.Background()); err != nil {
		t.Fatalf("EnforcePass returned error: %v", err)
	}

	evictions, err := store.RecentEvictions(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentEvictions failed: %v", err)
	}
	if len(evictions) != 1 {
		t.Fatalf("expected 1 recorded eviction, got %d", len(evictions))
	}
	got := evictions[0]
	if got.Path != "old.mp4" || got.SizeBytes != 100 {
		t.Errorf("unexpected recorded eviction: %+v", got)
	}
	if got.UsageBefore != 300 || got.UsageAfter != 200 {
		t.Errorf("unexpected usage bounds: %+v", got)
	}
}
