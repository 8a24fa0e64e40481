package util

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestRun_CapturesStdoutAndStderr(t *testing.T) {
	runner := NewCommandRunner()
	res, err := runner.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(res.Stdout, []byte("out")) {
		t.Errorf("expected stdout to contain 'out', got %q", res.Stdout)
	}
	if !bytes.Contains(res.Stderr, []byte("err")) {
		t.Errorf("expected stderr to contain 'err', got %q", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	runner := NewCommandRunner()
	res, err := runner.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo failure-output 1>&2; exit 3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if !bytes.Contains(res.Stderr, []byte("failure-output")) {
		t.Errorf("expected stderr to contain 'failure-output', got %q", res.Stderr)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	runner := NewCommandRunner()
	_, err := runner.Run(context.Background(), Command{Name: "definitely-not-a-binary-svnscm"})
	if err == nil {
		t.Fatal("expected launch error, got nil")
	}
}

func TestRun_Dir(t *testing.T) {
	dir := t.TempDir()
	runner := NewCommandRunner()
	res, err := runner.Run(context.Background(), Command{Name: "pwd", Dir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(res.Stdout, []byte(dir)) {
		t.Errorf("expected pwd output %q to contain %q", res.Stdout, dir)
	}
}

func TestMockCommandRunner_QueuedResults(t *testing.T) {
	m := NewMockCommandRunner().
		ExpectExit("svn update", 1, "svn: E155004: locked").
		ExpectSuccess("svn update", []byte("ok"))

	ctx := context.Background()
	cmd := Command{Name: "svn", Args: []string{"update"}}

	first, _ := m.Run(ctx, cmd)
	second, _ := m.Run(ctx, cmd)
	third, _ := m.Run(ctx, cmd)

	if first.ExitCode != 1 {
		t.Errorf("first call: expected exit 1, got %d", first.ExitCode)
	}
	if string(second.Stdout) != "ok" || string(third.Stdout) != "ok" {
		t.Errorf("expected last result to repeat, got %q and %q", second.Stdout, third.Stdout)
	}
	if m.CallCount("svn update") != 3 {
		t.Errorf("expected 3 calls, got %d", m.CallCount("svn update"))
	}
}

func TestMockCommandRunner_Unexpected(t *testing.T) {
	m := NewMockCommandRunner()
	_, err := m.Run(context.Background(), Command{Name: "svn", Args: []string{"info"}})
	if err == nil {
		t.Fatal("expected error for unexpected command")
	}

	m.AllowUnexpected()
	if _, err := m.Run(context.Background(), Command{Name: "svn", Args: []string{"info"}}); err != nil {
		t.Errorf("expected nil error after AllowUnexpected, got %v", err)
	}
}

func TestMockCommandRunner_LaunchFailure(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockCommandRunner().ExpectFailure("svn --version", boom)
	_, err := m.Run(context.Background(), Command{Name: "svn", Args: []string{"--version"}})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
