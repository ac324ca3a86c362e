package gitlog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// MockExecutor records commands and returns configured responses.
// This is exported for use in tests of other packages.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []ExecutorCall
}

// MockCommand defines a mock response for a command prefix, optionally bound to a directory.
type MockCommand struct {
	Dir        string
	NamePrefix string
	Result     CommandResult
	Err        error
	Sticky     bool
}

// ExecutorCall records a command invocation.
type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		commands: make([]MockCommand, 0),
		calls:    make([]ExecutorCall, 0),
	}
}

// AddResponse adds a one-shot mock response for commands matching the given prefix in any directory.
func (m *MockExecutor) AddResponse(namePrefix string, stdout []byte, err error) {
	m.Add(MockCommand{NamePrefix: namePrefix, Result: CommandResult{Stdout: stdout}, Err: err})
}

// AddDirResponse adds a sticky mock response for commands run in dir.
func (m *MockExecutor) AddDirResponse(dir, namePrefix string, result CommandResult, err error) {
	m.Add(MockCommand{Dir: dir, NamePrefix: namePrefix, Result: result, Err: err, Sticky: true})
}

// Add registers a mock response.
func (m *MockExecutor) Add(cmd MockCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
}

// Run returns the first configured response matching the command.
func (m *MockExecutor) Run(ctx context.Context, dir string, name string, args ...string) (CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ExecutorCall{Dir: dir, Name: name, Args: args})

	if err := ctx.Err(); err != nil {
		return CommandResult{ExitCode: -1}, err
	}

	// Build full command string for matching
	fullCmd := name + " " + strings.Join(args, " ")

	for i, cmd := range m.commands {
		if cmd.Dir != "" && cmd.Dir != dir {
			continue
		}
		if !strings.HasPrefix(fullCmd, cmd.NamePrefix) {
			continue
		}
		if !cmd.Sticky {
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
		}
		return cmd.Result, cmd.Err
	}

	return CommandResult{ExitCode: -1}, errors.New("no mock response configured for: " + fullCmd)
}

// GetCalls returns all recorded command calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutorCall(nil), m.calls...)
}

// MustGetLastCall returns the last recorded call, fails the test if no calls were made.
func (m *MockExecutor) MustGetLastCall(t *testing.T) ExecutorCall {
	t.Helper()
	calls := m.GetCalls()
	if len(calls) == 0 {
		t.Fatal("Expected at least one command call")
	}
	return calls[len(calls)-1]
}
