package statuscache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/svn"
)

type fakeSource struct {
	root   string
	count  int
	err    error
	status atomic.Int32
}

func (f *fakeSource) Root() string   { return f.root }
func (f *fakeSource) Branch() string { return "trunk" }
func (f *fakeSource) Count() int     { return f.count }
func (f *fakeSource) Groups() []scm.ResourceGroup {
	return []scm.ResourceGroup{{
		ID:    scm.GroupChanges,
		Label: "Changes",
		Resources: []scm.Resource{
			{Path: f.root + "/a.txt", RelPath: "a.txt", Type: svn.StatusModified, Props: svn.PropsNone},
		},
	}}
}

func (f *fakeSource) Status(context.Context) error {
	f.status.Add(1)
	return f.err
}

func TestReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeSource{root: "/wc", count: 1}

	got, err := Read(fs, "/home/me", "/wc")
	require.NoError(t, err)
	assert.Nil(t, got)

	snap := FromRepository(src, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, Write(fs, "/home/me", snap))

	got, err = Read(fs, "/home/me", "/wc")
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	exists, err := afero.Exists(fs, Path("/home/me", "/wc"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRead_Invalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, Path("/home", "/wc"), []byte("{invalid"), 0o644))

	_, err := Read(fs, "/home", "/wc")
	assert.Error(t, err)
}

func TestPath_DistinctPerRoot(t *testing.T) {
	assert.NotEqual(t, Path("/h", "/wc1"), Path("/h", "/wc2"))
	assert.Equal(t, Path("/h", "/wc1"), Path("/h", "/wc1/"))
}

func TestRefresh_PropagatesStatusError(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := errors.New("boom")
	src := &fakeSource{root: "/wc", err: boom}

	_, err := Refresh(context.Background(), fs, "/home", src)
	assert.ErrorIs(t, err, boom)

	got, err := Read(fs, "/home", "/wc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStartPeriodicRefresh(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeSource{root: "/wc", count: 4}

	stop := startPeriodicRefresh(context.Background(), fs, "/home", src, zap.NewNop(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return src.status.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	snap := stop()
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.Count)
	assert.Equal(t, "trunk", snap.Branch)
}

func TestStartPeriodicRefresh_NoSnapshotWhenStoppedEarly(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeSource{root: "/wc"}

	stop := startPeriodicRefresh(context.Background(), fs, "/home", src, zap.NewNop(), time.Hour)
	assert.Nil(t, stop())
}

func TestStartPeriodicRefresh_LogsFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := &fakeSource{root: "/wc", err: errors.New("svn: E170013: Unable to connect")}
	core, logs := observer.New(zap.WarnLevel)

	stop := startPeriodicRefresh(context.Background(), fs, "/home", src, zap.New(core), 10*time.Millisecond)
	require.Eventually(t, func() bool { return logs.Len() >= 1 }, time.Second, time.Millisecond)
	assert.Nil(t, stop())

	entry := logs.All()[0]
	assert.Equal(t, "status cache refresh failed", entry.Message)
	assert.Equal(t, "/wc", entry.ContextMap()["root"])
	assert.Contains(t, entry.ContextMap()["error"], "Unable to connect")
}
