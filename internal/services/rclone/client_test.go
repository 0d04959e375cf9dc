package rclone_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"shuttle/internal/remote"
	"shuttle/internal/services"
	"shuttle/internal/services/rclone"
)

type execCall struct {
	binary string
	args   []string
	stdin  string
}

type fakeExecutor struct {
	stdout []string
	stderr []string
	err    error
	calls  []execCall
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, stdin string, onStdout, onStderr func(string)) error {
	f.calls = append(f.calls, execCall{binary: binary, args: append([]string(nil), args...), stdin: stdin})
	for _, line := range f.stdout {
		if onStdout != nil {
			onStdout(line)
		}
	}
	for _, line := range f.stderr {
		if onStderr != nil {
			onStderr(line)
		}
	}
	return f.err
}

func newClient(t *testing.T, exec rclone.Executor) *rclone.Client {
	t.Helper()
	client, err := rclone.New(rclone.Config{
		Binary:     "rclone",
		Source:     "/staging",
		Dest:       "remote:media",
		ConfigPath: "/config/rclone/rclone.conf",
		ExtraFlags: []string{"--transfers", "4"},
	}, rclone.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func lastCall(t *testing.T, exec *fakeExecutor) execCall {
	t.Helper()
	if len(exec.calls) == 0 {
		t.Fatal("executor was never invoked")
	}
	return exec.calls[len(exec.calls)-1]
}

func TestListParsesEntries(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{
		`[`,
		`  {"Path":"shows","Size":-1,"ModTime":"2024-03-01T10:00:00Z","IsDir":true},`,
		`  {"Path":"shows/pilot.mkv","Size":2048,"ModTime":"2024-03-01T10:15:30.123456789Z","IsDir":false},`,
		`  {"Path":"movie.mkv","Size":4096,"ModTime":"2024-02-28T08:00:00Z","IsDir":false}`,
		`]`,
	}}
	client := newClient(t, exec)

	entries, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Path != "shows/pilot.mkv" || entries[0].Size != 2048 {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	want := time.Date(2024, 3, 1, 10, 15, 30, 123456789, time.UTC)
	if !entries[0].ModTime.Equal(want) {
		t.Errorf("expected mod time %v, got %v", want, entries[0].ModTime)
	}

	call := lastCall(t, exec)
	wantArgs := []string{
		"lsjson", "--recursive", "--files-only", "--no-mimetype", "--tpslimit", "4",
		"remote:media",
		"--transfers", "4",
		"--config", "/config/rclone/rclone.conf",
	}
	if !reflect.DeepEqual(call.args, wantArgs) {
		t.Errorf("unexpected args:\n got %v\nwant %v", call.args, wantArgs)
	}
	if call.binary != "rclone" {
		t.Errorf("expected rclone binary, got %q", call.binary)
	}
}

func TestListEmptyOutput(t *testing.T) {
	client := newClient(t, &fakeExecutor{})

	entries, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestListUnparseableModTime(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{
		`[{"Path":"bad.mkv","Size":1,"ModTime":"not-a-time","IsDir":false}]`,
	}}
	client := newClient(t, exec)

	entries, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 || !entries[0].ModTime.IsZero() {
		t.Errorf("expected zero mod time entry, got %+v", entries)
	}
}

func TestListCommandFailure(t *testing.T) {
	exec := &fakeExecutor{
		stderr: []string{"2024/03/01 NOTICE: config error", "Failed to lsjson: directory not found"},
		err:    errors.New("exit status 3"),
	}
	client := newClient(t, exec)

	_, err := client.List(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "directory not found") {
		t.Errorf("expected stderr tail in error, got %v", err)
	}
}

func TestExists(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{
		`[{"Path":"pilot.mkv","Size":2048,"ModTime":"2024-03-01T10:00:00Z","IsDir":false}]`,
	}}
	client := newClient(t, exec)

	ok, err := client.Exists(context.Background(), "shows/pilot.mkv")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !ok {
		t.Error("expected existing path to report true")
	}

	call := lastCall(t, exec)
	if call.args[0] != "lsjson" || call.args[1] != "remote:media/shows/pilot.mkv" {
		t.Errorf("unexpected args: %v", call.args)
	}
}

func TestExistsCommandFailureReportsAbsent(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 3")}
	client := newClient(t, exec)

	ok, err := client.Exists(context.Background(), "missing.mkv")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ok {
		t.Error("expected failed check to report absent")
	}
}

func TestMoveAll(t *testing.T) {
	exec := &fakeExecutor{}
	client := newClient(t, exec)

	if err := client.Move(context.Background(), remote.All()); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}

	call := lastCall(t, exec)
	wantArgs := []string{
		"move", "/staging", "remote:media", "--progress", "--delete-empty-src-dirs",
		"--transfers", "4",
		"--config", "/config/rclone/rclone.conf",
	}
	if !reflect.DeepEqual(call.args, wantArgs) {
		t.Errorf("unexpected args:\n got %v\nwant %v", call.args, wantArgs)
	}
	if call.stdin != "" {
		t.Errorf("whole-tree move should not feed stdin, got %q", call.stdin)
	}
}

func TestMoveSubsetAnchorsAndEscapes(t *testing.T) {
	exec := &fakeExecutor{}
	client := newClient(t, exec)

	batch := remote.Subset([]string{
		"shows/show [1080p]/pilot.mkv",
		"movie?.mkv",
	})
	if err := client.Move(context.Background(), batch); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}

	call := lastCall(t, exec)
	joined := strings.Join(call.args, " ")
	if !strings.Contains(joined, "--include-from -") {
		t.Errorf("expected --include-from - in args: %v", call.args)
	}
	wantStdin := "/shows/show \\[1080p\\]/pilot.mkv\n/movie\\?.mkv\n"
	if call.stdin != wantStdin {
		t.Errorf("unexpected filter document:\n got %q\nwant %q", call.stdin, wantStdin)
	}
}

func TestMoveEmptySubsetRejected(t *testing.T) {
	exec := &fakeExecutor{}
	client := newClient(t, exec)

	err := client.Move(context.Background(), remote.Subset(nil))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("executor should not run for an empty subset, saw %d calls", len(exec.calls))
	}
}

func TestObjectOperations(t *testing.T) {
	cases := []struct {
		name    string
		op      func(*rclone.Client) error
		command string
	}{
		{"delete", func(c *rclone.Client) error { return c.Delete(context.Background(), "old.mkv") }, "delete"},
		{"zero", func(c *rclone.Client) error { return c.Zero(context.Background(), "old.mkv") }, "rcat"},
		{"purge", func(c *rclone.Client) error { return c.Purge(context.Background(), "old.mkv") }, "touch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			client := newClient(t, exec)
			if err := tc.op(client); err != nil {
				t.Fatalf("operation returned error: %v", err)
			}
			call := lastCall(t, exec)
			if call.args[0] != tc.command || call.args[1] != "remote:media/old.mkv" {
				t.Errorf("unexpected args: %v", call.args)
			}
		})
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := rclone.New(rclone.Config{Source: "/staging", Dest: "remote:media"}); err == nil {
		t.Error("expected error for missing binary")
	}
	if _, err := rclone.New(rclone.Config{Binary: "rclone", Dest: "remote:media"}); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := rclone.New(rclone.Config{Binary: "rclone", Source: "/staging"}); err == nil {
		t.Error("expected error for missing destination")
	}
}

func TestWriteConfigSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rclone.conf")
	content := "[remote]\ntype = s3\n"
	seed := base64.StdEncoding.EncodeToString([]byte(content))

	if err := rclone.WriteConfigSeed(path, seed); err != nil {
		t.Fatalf("WriteConfigSeed returned error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read seeded config: %v", err)
	}
	if string(got) != content {
		t.Errorf("unexpected config content: %q", got)
	}

	// A second seed must not clobber the existing file.
	other := base64.StdEncoding.EncodeToString([]byte("changed"))
	if err := rclone.WriteConfigSeed(path, other); err != nil {
		t.Fatalf("WriteConfigSeed returned error: %v", err)
	}
	got, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read seeded config: %v", err)
	}
	if string(got) != content {
		t.Errorf("existing config was overwritten: %q", got)
	}
}

func TestWriteConfigSeedEmptyNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rclone.conf")
	if err := rclone.WriteConfigSeed(path, "  "); err != nil {
		t.Fatalf("WriteConfigSeed returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty seed should not create a config file")
	}
}

func TestWriteConfigSeedInvalidBase64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rclone.conf")
	if err := rclone.WriteConfigSeed(path, "not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
