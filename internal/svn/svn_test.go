package svn

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolasblack/svnscm/internal/util"
)

func TestExec_AppendsNonInteractiveAndCredentials(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess("svn update --non-interactive --username bob --password secret", []byte("Updated to revision 5.\n"))
	s := New(m)

	res, err := s.Exec(context.Background(), "/wc", []string{"update"}, ExecOptions{Username: "bob", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Updated to revision 5.\n", res.Stdout)
	require.Len(t, m.Calls, 1)
	assert.Equal(t, "/wc", m.Calls[0].Dir)
}

func TestExec_NonZeroExitBecomesError(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectExit("svn commit -m msg --non-interactive", 1, "svn: E155004: Working copy '/wc' locked.\n")
	s := New(m)

	_, err := s.Exec(context.Background(), "/wc", []string{"commit", "-m", "msg"}, ExecOptions{})
	require.Error(t, err)

	var svnErr *Error
	require.True(t, errors.As(err, &svnErr))
	assert.Equal(t, CodeRepositoryIsLocked, svnErr.Code)
	assert.Equal(t, 1, svnErr.ExitCode)
	assert.Equal(t, "Working copy '/wc' locked.", svnErr.FormattedStderr())
	assert.True(t, IsLocked(err))
}

func TestExec_DecodesFallbackCharset(t *testing.T) {
	// "caf\xe9" is "café" in windows-1252.
	m := util.NewMockCommandRunner().
		ExpectSuccess("svn cat file --non-interactive", []byte("caf\xe9"))
	s := New(m, WithEncoding("windows-1252"))

	res, err := s.Exec(context.Background(), "/wc", []string{"cat", "file"}, ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "café", res.Stdout)
}

func TestVersion(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess("svn --version --non-interactive", []byte("svn, version 1.14.2 (r1899510)\n   compiled ...\n"))
	s := New(m)

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.14.2", v)
}

func TestVersion_MissingBinary(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectFailure("/opt/svn --version --non-interactive", exec.ErrNotFound)
	s := New(m, WithPath("/opt/svn"))

	_, err := s.Version(context.Background())
	assert.ErrorIs(t, err, ErrSvnNotFound)
}

func TestRedact(t *testing.T) {
	got := redact([]string{"info", "--username", "u", "--password", "p"})
	assert.Equal(t, []string{"info", "--username", "u", "--password", "***"}, got)
}
