package sync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// newTestRepo creates a bare remote and a clone of it with one commit on main,
// returning the remote and clone paths.
func newTestRepo(t *testing.T) (remoteDir, repoDir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	remoteDir = t.TempDir()
	run(t, remoteDir, "git", "init", "--bare")

	workDir := t.TempDir()
	run(t, workDir, "git", "clone", remoteDir, "repo")
	repoDir = filepath.Join(workDir, "repo")

	// Git needs user identity for commits.
	run(t, repoDir, "git", "config", "user.email", "test@test.com")
	run(t, repoDir, "git", "config", "user.name", "Test")
	run(t, repoDir, "git", "branch", "-m", "main")

	if err := os.WriteFile(filepath.Join(repoDir, ".gitkeep"), []byte(""), 0o644); err != nil {
		t.Fatalf("write .gitkeep: %v", err)
	}
	run(t, repoDir, "git", "add", ".")
	run(t, repoDir, "git", "commit", "-m", "init")
	run(t, repoDir, "git", "push", "origin", "main")
	return remoteDir, repoDir
}

func TestGitDestination(t *testing.T) {
	remoteDir, repoDir := newTestRepo(t)
	dest := NewGitDestination(repoDir, "events.json", "main")

	data1 := []byte(`[{"published":"2024-01-01"}]`)
	if err := dest.Write(context.Background(), data1); err != nil {
		t.Fatalf("first write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(repoDir, "events.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(got) != string(data1) {
		t.Fatalf("file content mismatch: got %q", string(got))
	}

	// Same data again is a no-op (no commit).
	if err := dest.Write(context.Background(), data1); err != nil {
		t.Fatalf("second write (no-op): %v", err)
	}
	if n := commitCount(t, remoteDir); n != 2 {
		t.Errorf("remote commits = %d, want 2 (init + first write)", n)
	}

	data2 := []byte(`[{"published":"2024-01-01"},{"published":"2024-01-02"}]`)
	if err := dest.Write(context.Background(), data2); err != nil {
		t.Fatalf("third write: %v", err)
	}
	if n := commitCount(t, remoteDir); n != 3 {
		t.Errorf("remote commits = %d, want 3", n)
	}
}

func TestGitDestination_SubDirectory(t *testing.T) {
	_, repoDir := newTestRepo(t)
	dest := NewGitDestination(repoDir, "data/events.json", "main")

	data := []byte(`[]`)
	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(repoDir, "data", "events.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("content mismatch: got %q", string(got))
	}
}

func TestGitDestination_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
	dest := NewGitDestination(t.TempDir(), "events.json", "main")
	err := dest.Write(context.Background(), []byte(`[]`))
	if err == nil {
		t.Fatal("expected error writing outside a git repo")
	}
	// git's own explanation is carried in the error for the run log.
	if !strings.Contains(err.Error(), "git checkout") || !strings.Contains(strings.ToLower(err.Error()), "not a git repository") {
		t.Errorf("error = %v", err)
	}
}

func commitCount(t *testing.T, dir string) int {
	t.Helper()
	cmd := exec.Command("git", "rev-list", "--count", "main")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git rev-list: %v", err)
	}
	var n int
	for _, c := range strings.TrimSpace(string(out)) {
		n = n*10 + int(c-'0')
	}
	return n
}

func run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("%s %v failed: %v", name, args, err)
	}
}
