package truncate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shuttle/internal/logging"
	"shuttle/internal/testsupport"
	"shuttle/internal/truncate"
)

func TestApplyTrimsToExactLength(t *testing.T) {
	root := t.TempDir()
	long := filepath.Join(root, strings.Repeat("a", 120)+".mkv")
	testsupport.WriteFile(t, long, 10)
	maxLen := len(root) + 40

	renames, err := truncate.Apply(root, maxLen, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 1 {
		t.Fatalf("expected 1 rename, got %d", len(renames))
	}
	got := renames[0].To
	if len(got) != maxLen {
		t.Fatalf("expected path length %d, got %d (%s)", maxLen, len(got), got)
	}
	if !strings.HasSuffix(got, ".mkv") {
		t.Fatalf("expected extension preserved, got %s", got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected renamed file on disk: %v", err)
	}
	if _, err := os.Stat(long); !os.IsNotExist(err) {
		t.Fatalf("expected original gone, got err=%v", err)
	}
}

func TestApplyLeavesShortPathsAlone(t *testing.T) {
	root := t.TempDir()
	short := filepath.Join(root, "fine.mkv")
	testsupport.WriteFile(t, short, 10)

	renames, err := truncate.Apply(root, len(root)+200, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 0 {
		t.Fatalf("expected no renames, got %v", renames)
	}
	if _, err := os.Stat(short); err != nil {
		t.Fatalf("expected file untouched: %v", err)
	}
}

func TestApplyZeroLimitDisabled(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, strings.Repeat("x", 100)), 1)
	renames, err := truncate.Apply(root, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 0 {
		t.Fatalf("expected disabled truncation to do nothing, got %v", renames)
	}
}

func TestApplyHandlesNestedDirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "season one", strings.Repeat("e", 150)+".srt")
	testsupport.WriteFile(t, nested, 5)
	maxLen := len(filepath.Join(root, "season one")) + 30

	renames, err := truncate.Apply(root, maxLen, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 1 {
		t.Fatalf("expected 1 rename, got %d", len(renames))
	}
	if got := renames[0].To; len(got) != maxLen {
		t.Fatalf("expected length %d, got %d", maxLen, len(got))
	}
	if dir := filepath.Dir(renames[0].To); filepath.Base(dir) != "season one" {
		t.Fatalf("expected directory name untouched, got %s", dir)
	}
}

func TestApplyCollisionGetsDigestName(t *testing.T) {
	root := t.TempDir()
	maxLen := len(root) + 20

	first := filepath.Join(root, strings.Repeat("a", 60)+"one.mkv")
	second := filepath.Join(root, strings.Repeat("a", 60)+"two.mkv")
	testsupport.WriteFile(t, first, 1)
	testsupport.WriteFile(t, second, 1)

	renames, err := truncate.Apply(root, maxLen, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 2 {
		t.Fatalf("expected 2 renames, got %d", len(renames))
	}
	if renames[0].To == renames[1].To {
		t.Fatalf("expected distinct targets, both were %s", renames[0].To)
	}
	for _, rename := range renames {
		if len(rename.To) != maxLen {
			t.Fatalf("expected length %d, got %d (%s)", maxLen, len(rename.To), rename.To)
		}
		if !strings.HasSuffix(rename.To, ".mkv") {
			t.Fatalf("expected extension preserved, got %s", rename.To)
		}
	}
}

func TestApplySkipsWhenDirectoryConsumesBudget(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "deep", strings.Repeat("n", 50)+".bin")
	testsupport.WriteFile(t, deep, 1)

	// Budget shorter than the containing directory path: nothing to do.
	renames, err := truncate.Apply(root, len(filepath.Join(root, "deep"))-1, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 0 {
		t.Fatalf("expected skip, got %v", renames)
	}
	if _, err := os.Stat(deep); err != nil {
		t.Fatalf("expected file untouched: %v", err)
	}
}

func TestApplyPreservesDotfiles(t *testing.T) {
	root := t.TempDir()
	hidden := filepath.Join(root, "."+strings.Repeat("h", 100))
	testsupport.WriteFile(t, hidden, 1)
	maxLen := len(root) + 10

	renames, err := truncate.Apply(root, maxLen, logging.NewNop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(renames) != 1 {
		t.Fatalf("expected 1 rename, got %d", len(renames))
	}
	if base := filepath.Base(renames[0].To); !strings.HasPrefix(base, ".") {
		t.Fatalf("expected leading dot preserved, got %s", base)
	}
	if len(renames[0].To) != maxLen {
		t.Fatalf("expected length %d, got %d", maxLen, len(renames[0].To))
	}
}
