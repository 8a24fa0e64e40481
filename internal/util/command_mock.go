package util

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// MockCommandRunner implements CommandRunner for testing.
// Records all command invocations and returns pre-configured results.
type MockCommandRunner struct {
	mu sync.Mutex

	// commands maps "name arg1 arg2 ..." to a queue of results.
	// The last queued result is sticky and repeats for further calls.
	commands map[string][]MockResult

	// defaultError is returned for unexpected commands.
	defaultError error

	// Calls records all command invocations in order.
	Calls []CommandCall
}

// MockResult holds the pre-configured result and error for a command.
type MockResult struct {
	Result Result
	Err    error
}

// CommandCall records a single command invocation.
type CommandCall struct {
	Name string
	Args []string
	Dir  string
	Key  string // "name arg1 arg2 ..."
}

// NewMockCommandRunner creates a mock that fails on unexpected commands.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		commands:     make(map[string][]MockResult),
		defaultError: fmt.Errorf("unexpected command"),
	}
}

// Expect queues a result for a command.
// cmd format: "name arg1 arg2 ..." (space-separated).
func (m *MockCommandRunner) Expect(cmd string, res Result, err error) *MockCommandRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[cmd] = append(m.commands[cmd], MockResult{Result: res, Err: err})
	return m
}

// ExpectSuccess is shorthand for a zero exit with the given stdout.
func (m *MockCommandRunner) ExpectSuccess(cmd string, stdout []byte) *MockCommandRunner {
	return m.Expect(cmd, Result{Stdout: stdout}, nil)
}

// ExpectExit queues a non-zero exit with the given stderr.
func (m *MockCommandRunner) ExpectExit(cmd string, exitCode int, stderr string) *MockCommandRunner {
	return m.Expect(cmd, Result{ExitCode: exitCode, Stderr: []byte(stderr)}, nil)
}

// ExpectFailure queues a launch failure.
func (m *MockCommandRunner) ExpectFailure(cmd string, err error) *MockCommandRunner {
	return m.Expect(cmd, Result{ExitCode: -1}, err)
}

// AllowUnexpected makes unexpected commands return empty output and nil error.
func (m *MockCommandRunner) AllowUnexpected() *MockCommandRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultError = nil
	return m
}

// Run implements CommandRunner.
func (m *MockCommandRunner) Run(_ context.Context, c Command) (Result, error) {
	key := c.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, CommandCall{
		Name: c.Name,
		Args: c.Args,
		Dir:  c.Dir,
		Key:  key,
	})

	if queue, ok := m.commands[key]; ok && len(queue) > 0 {
		res := queue[0]
		if len(queue) > 1 {
			m.commands[key] = queue[1:]
		}
		return res.Result, res.Err
	}

	if m.defaultError != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s", m.defaultError, key)
	}
	return Result{}, nil
}

// Called returns true if the command was called at least once.
func (m *MockCommandRunner) Called(cmd string) bool {
	return m.CallCount(cmd) > 0
}

// CallCount returns how many times the command was called.
func (m *MockCommandRunner) CallCount(cmd string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call.Key == cmd {
			count++
		}
	}
	return count
}

// AssertCalled fails the test if the command was not called.
func (m *MockCommandRunner) AssertCalled(t *testing.T, cmd string) {
	t.Helper()
	if !m.Called(cmd) {
		t.Errorf("expected command to be called: %s", cmd)
		t.Errorf("actual calls: %v", m.CallKeys())
	}
}

// AssertNotCalled fails the test if the command was called.
func (m *MockCommandRunner) AssertNotCalled(t *testing.T, cmd string) {
	t.Helper()
	if m.Called(cmd) {
		t.Errorf("expected command NOT to be called: %s", cmd)
	}
}

// CallKeys returns all called command keys for debugging.
func (m *MockCommandRunner) CallKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.Calls))
	for i, call := range m.Calls {
		keys[i] = call.Key
	}
	return keys
}

// CallsWithPrefix returns the keys of calls starting with prefix.
func (m *MockCommandRunner) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, k := range m.CallKeys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
