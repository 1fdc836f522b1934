package listdir

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoad_ConcatenatesSortedTxtFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-local.txt", "||local.example^")
	writeFile(t, dir, "00-easylist.txt", "! comment\n||ads.example^")
	writeFile(t, dir, "notes.md", "ignored")

	lines, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := []string{"! comment", "||ads.example^", "||local.example^"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %v, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestLoad_StripsCarriageReturns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "||ads.example^\r\n||tracker.example^\r")

	lines, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	for i, l := range lines {
		if l != "" && l[len(l)-1] == '\r' {
			t.Errorf("line[%d] = %q still carries CR", i, l)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for directory without list files")
	}
}

func TestWatch_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "||ads.example^")

	w, err := Watch(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer w.Close()

	// A burst of writes should collapse into one notification.
	for i := 0; i < 3; i++ {
		writeFile(t, dir, "a.txt", "||ads.example^")
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no event after writes")
	}

	select {
	case <-w.Events():
		t.Error("burst produced more than one notification")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_IgnoresNonListFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer w.Close()

	writeFile(t, dir, "scratch.tmp", "x")

	select {
	case <-w.Events():
		t.Error("non-list file produced a notification")
	case <-time.After(150 * time.Millisecond):
	}
}
