package svn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolasblack/svnscm/internal/util"
)

const rootInfoXML = `<?xml version="1.0" encoding="UTF-8"?>
<info><entry kind="dir" path="." revision="10">
<url>https://svn.example.com/repo/trunk</url>
<relative-url>^/trunk</relative-url>
<repository><root>https://svn.example.com/repo</root><uuid>uuid-1</uuid></repository>
<wc-info><wcroot-abspath>/wc</wcroot-abspath></wc-info>
</entry></info>`

const infoKey = "svn info --xml . --non-interactive"

func newTestRepo(m *util.MockCommandRunner, opts ...RepositoryOption) *BaseRepository {
	return NewBaseRepository(New(m), "/wc", opts...)
}

func TestStatus_Args(t *testing.T) {
	tests := []struct {
		name string
		opts StatusOptions
		key  string
	}{
		{"default", StatusOptions{}, "svn stat --xml --ignore-externals --non-interactive"},
		{"remote", StatusOptions{CheckRemoteChanges: true}, "svn stat --xml --show-updates --ignore-externals --non-interactive"},
		{"ignored", StatusOptions{IncludeIgnored: true}, "svn stat --xml --no-ignore --ignore-externals --non-interactive"},
		{"externals", StatusOptions{IncludeExternals: true}, "svn stat --xml --non-interactive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := util.NewMockCommandRunner().
				ExpectSuccess(tt.key, []byte(`<status><target path="."></target></status>`))
			repo := newTestRepo(m)

			_, err := repo.Status(context.Background(), tt.opts)
			require.NoError(t, err)
			m.AssertCalled(t, tt.key)
		})
	}
}

func TestInfo_CacheTTL(t *testing.T) {
	m := util.NewMockCommandRunner().ExpectSuccess(infoKey, []byte(rootInfoXML))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newTestRepo(m, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	info, err := repo.Info(ctx, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", info.RepositoryUUID)

	now = now.Add(time.Minute)
	_, err = repo.Info(ctx, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, m.CallCount(infoKey))

	now = now.Add(2 * time.Minute)
	_, err = repo.Info(ctx, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, m.CallCount(infoKey))

	_, err = repo.Info(ctx, "", "", true)
	require.NoError(t, err)
	assert.Equal(t, 3, m.CallCount(infoKey))
}

func TestCredentialsAreAppended(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess("svn cleanup --non-interactive --username u --password p", nil)
	repo := newTestRepo(m)
	repo.SetCredentials("u", "p")

	require.NoError(t, repo.Cleanup(context.Background()))
	assert.Equal(t, "u", repo.Username())
}

func TestBranchLayout_BranchName(t *testing.T) {
	layout := BranchLayout{Trunk: "trunk", Branches: []string{"branches", "branches/release"}, Tags: []string{"tags"}}
	tests := []struct {
		rel  string
		want string
	}{
		{"/trunk", "trunk"},
		{"/trunk/sub/dir", "trunk"},
		{"/branches/feature", "branches/feature"},
		{"/branches/feature/src", "branches/feature"},
		{"/branches/release/1.0/src", "branches/release/1.0"},
		{"/tags/v1", "tags/v1"},
		{"/sandbox/x", "sandbox/x"},
		{"/", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, layout.BranchName(tt.rel), tt.rel)
	}
}

func TestCurrentBranch(t *testing.T) {
	m := util.NewMockCommandRunner().ExpectSuccess(infoKey, []byte(rootInfoXML))
	repo := newTestRepo(m)

	branch, err := repo.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trunk", branch)
}

func TestNewBranch(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess(infoKey, []byte(rootInfoXML)).
		ExpectSuccess("svn copy https://svn.example.com/repo/trunk https://svn.example.com/repo/branches/feature -m Created new branch feature --non-interactive", nil).
		ExpectSuccess("svn switch https://svn.example.com/repo/branches/feature --non-interactive", nil)
	repo := newTestRepo(m)

	require.NoError(t, repo.NewBranch(context.Background(), "feature", ""))
	m.AssertCalled(t, "svn switch https://svn.example.com/repo/branches/feature --non-interactive")
}

func TestSwitchBranch_Force(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess(infoKey, []byte(rootInfoXML)).
		ExpectSuccess("svn switch https://svn.example.com/repo/tags/v1 --ignore-ancestry --non-interactive", nil)
	repo := newTestRepo(m)

	require.NoError(t, repo.SwitchBranch(context.Background(), "tags/v1", true))
}

func TestUpdateAndCommitMessages(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess("svn update --ignore-externals --non-interactive", []byte("Updating '.':\nU    a.txt\nUpdated to revision 12.\n")).
		ExpectSuccess("svn commit -m msg a.txt --non-interactive", []byte("Sending        a.txt\nTransmitting file data .done\nCommitting transaction...\nCommitted revision 13.\n"))
	repo := newTestRepo(m)
	ctx := context.Background()

	msg, err := repo.Update(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "Updated to revision 12.", msg)

	msg, err = repo.Commit(ctx, "msg", []string{"a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Committed revision 13.", msg)

	rev, ok := CommittedRevision(msg)
	assert.True(t, ok)
	assert.Equal(t, 13, rev)
}

func TestCommandArgs(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(r *BaseRepository) error
		key  string
	}{
		{"add", func(r *BaseRepository) error { return r.Add(ctx, []string{"a", "b"}) }, "svn add a b --non-interactive"},
		{"changelist add", func(r *BaseRepository) error { return r.AddChangelist(ctx, []string{"a"}, "cl") }, "svn changelist cl a --non-interactive"},
		{"changelist remove", func(r *BaseRepository) error { return r.RemoveChangelist(ctx, []string{"a"}) }, "svn changelist --remove a --non-interactive"},
		{"resolve", func(r *BaseRepository) error { return r.Resolve(ctx, []string{"a"}, "working") }, "svn resolve --accept working a --non-interactive"},
		{"revert", func(r *BaseRepository) error { return r.Revert(ctx, []string{"a"}, "") }, "svn revert --depth empty a --non-interactive"},
		{"remove keep", func(r *BaseRepository) error { return r.Remove(ctx, []string{"a"}, true) }, "svn remove --keep-local a --non-interactive"},
		{"remove", func(r *BaseRepository) error { return r.Remove(ctx, []string{"a"}, false) }, "svn remove a --non-interactive"},
		{"rename", func(r *BaseRepository) error { return r.Rename(ctx, "a", "b") }, "svn rename a b --non-interactive"},
		{"finish checkout", func(r *BaseRepository) error { return r.FinishCheckout(ctx) }, "svn update --set-depth infinity --non-interactive"},
		{"patch", func(r *BaseRepository) error { _, err := r.Patch(ctx, nil); return err }, "svn diff --non-interactive"},
		{"patch changelist", func(r *BaseRepository) error { _, err := r.PatchChangelist(ctx, "cl"); return err }, "svn diff --changelist cl --non-interactive"},
		{"show", func(r *BaseRepository) error { _, err := r.Show(ctx, "a", "PREV"); return err }, "svn cat -r PREV a --non-interactive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := util.NewMockCommandRunner().ExpectSuccess(tt.key, nil)
			require.NoError(t, tt.run(newTestRepo(m)))
			m.AssertCalled(t, tt.key)
		})
	}
}

func TestResolve_InvalidAction(t *testing.T) {
	repo := newTestRepo(util.NewMockCommandRunner())
	assert.Error(t, repo.Resolve(context.Background(), []string{"a"}, "postpone"))
}

func TestShow_InvalidRevision(t *testing.T) {
	repo := newTestRepo(util.NewMockCommandRunner())
	_, err := repo.Show(context.Background(), "a", "yesterday")
	assert.ErrorIs(t, err, ErrInvalidRevision)
}

func TestLog(t *testing.T) {
	key := "svn log -r HEAD:1 --limit 5 --xml -v --non-interactive"
	m := util.NewMockCommandRunner().ExpectSuccess(key, []byte(`<log><logentry revision="3"><author>a</author><msg>m</msg></logentry></log>`))
	repo := newTestRepo(m)

	entries, err := repo.Log(context.Background(), LogOptions{Limit: 5, Verbose: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "3", entries[0].Revision)
}

func TestAddToIgnore(t *testing.T) {
	t.Run("merges existing", func(t *testing.T) {
		m := util.NewMockCommandRunner().
			ExpectSuccess("svn propget svn:ignore . --non-interactive", []byte("*.log\nbuild\n")).
			ExpectSuccess("svn propset svn:ignore *.log\nbuild\n*.tmp . --non-interactive", nil)
		repo := newTestRepo(m)

		require.NoError(t, repo.AddToIgnore(context.Background(), []string{"*.tmp", "build"}, "", false))
		m.AssertCalled(t, "svn propset svn:ignore *.log\nbuild\n*.tmp . --non-interactive")
	})

	t.Run("property not set", func(t *testing.T) {
		m := util.NewMockCommandRunner().
			ExpectExit("svn propget svn:ignore dir --non-interactive", 1,
				"svn: warning: W200017: Property 'svn:ignore' not found on 'dir'\nsvn: E200000: A problem occurred; see other errors for details\n").
			ExpectSuccess("svn propset svn:ignore *.o dir --recursive --non-interactive", nil)
		repo := newTestRepo(m)

		require.NoError(t, repo.AddToIgnore(context.Background(), []string{"*.o"}, "dir", true))
	})
}

func TestListAndDiffSummary(t *testing.T) {
	m := util.NewMockCommandRunner().
		ExpectSuccess("svn list --xml . --non-interactive", []byte(`<lists><list path="."><entry kind="file"><name>a</name></entry></list></lists>`)).
		ExpectSuccess("svn diff --xml --summarize -r 1:2 . --non-interactive", []byte(`<diff><paths><path item="added" props="none" kind="file">a</path></paths></diff>`))
	repo := newTestRepo(m)
	ctx := context.Background()

	list, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	diff, err := repo.DiffSummary(ctx, "", "1", "2")
	require.NoError(t, err)
	require.Len(t, diff, 1)
	assert.Equal(t, StatusAdded, diff[0].Item)
}
