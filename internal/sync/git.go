package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const gitCommitMessage = "evcollect: update event log"

// GitDestination commits the event log into a local clone and pushes the
// branch to origin.
type GitDestination struct {
	repo   string
	file   string // relative to repo
	branch string
}

// NewGitDestination mirrors into file inside the existing clone at repo.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string { return "git:" + filepath.Join(d.repo, d.file) }

// Write replaces the mirrored file with data. An unchanged log produces no
// commit.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// Fails harmlessly on a branch origin does not have yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	target := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("git mirror: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("git mirror: %w", err)
	}

	if _, err := d.git(ctx, "add", "--", d.file); err != nil {
		return err
	}
	status, err := d.git(ctx, "status", "--porcelain", "--", d.file)
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}

	if _, err := d.git(ctx, "commit", "-m", gitCommitMessage, "--", d.file); err != nil {
		return err
	}
	_, err = d.git(ctx, "push", "origin", d.branch)
	return err
}

// git runs a git subcommand in the clone and returns its trimmed output. On
// failure the output is folded into the error so it reaches the log.
func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return strings.TrimSpace(out.String()), nil
}
