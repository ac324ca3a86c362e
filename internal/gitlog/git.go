package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jbruggem/personal-git-history/internal/domain"
)

// DefaultTimeout bounds a single git log invocation.
const DefaultTimeout = 60 * time.Second

// CommandResult holds the captured output of a finished command.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CombinedOutput returns stderr followed by stdout, trimmed.
func (r CommandResult) CombinedOutput() string {
	var b strings.Builder
	b.Write(r.Stderr)
	if len(r.Stderr) > 0 && len(r.Stdout) > 0 {
		b.WriteByte('\n')
	}
	b.Write(r.Stdout)
	return strings.TrimSpace(b.String())
}

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command in dir. A non-nil error means the command did not
	// start, was killed, or exited nonzero; the result carries whatever was captured.
	Run(ctx context.Context, dir string, name string, args ...string) (CommandResult, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and captures stdout and stderr separately.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && ctx.Err() != nil {
		// Report the deadline rather than "signal: killed".
		return result, fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return result, err
}

// ExtractionError reports a git log invocation that did not succeed for a repository.
type ExtractionError struct {
	Root     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("git log failed in %s (exit %d): %v", e.Root, e.ExitCode, e.Err)
	if e.Output != "" {
		msg += ": " + firstLine(e.Output)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// GitClient executes git commands.
type GitClient struct {
	executor CommandExecutor
	binary   string
	timeout  time.Duration
	format   domain.LineFormat
}

// NewGitClient creates a new GitClient with the default command executor.
func NewGitClient(binary string, timeout time.Duration) *GitClient {
	return NewGitClientWithExecutor(&DefaultExecutor{}, binary, timeout)
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for testing).
func NewGitClientWithExecutor(executor CommandExecutor, binary string, timeout time.Duration) *GitClient {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GitClient{
		executor: executor,
		binary:   binary,
		timeout:  timeout,
		format:   domain.CommitLineFormat,
	}
}

// LogArgs returns the git arguments used to list commits matching authorPattern.
// The same pattern filters both author and committer, case-insensitively, as an
// extended regular expression.
func (g *GitClient) LogArgs(authorPattern string) []string {
	return []string{
		"log",
		"-i", "-E",
		"--author=" + authorPattern,
		"--committer=" + authorPattern,
		"--pretty=format:" + g.format.PrettyFormat(),
		"--date=iso",
	}
}

// Extract runs git log in repoRoot and returns the non-empty output lines.
// An empty slice with a nil error means no commit matched.
func (g *GitClient) Extract(ctx context.Context, repoRoot, authorPattern string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.executor.Run(ctx, repoRoot, g.binary, g.LogArgs(authorPattern)...)
	if err != nil {
		return nil, &ExtractionError{
			Root:     repoRoot,
			ExitCode: result.ExitCode,
			Output:   result.CombinedOutput(),
			Err:      err,
		}
	}

	return splitLines(result.Stdout), nil
}

// splitLines splits output into lines, dropping blank ones and carriage returns.
func splitLines(output []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var extErr *ExtractionError
	return errors.As(err, &extErr)
}
