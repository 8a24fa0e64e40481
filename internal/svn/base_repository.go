package svn

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// InfoCacheTTL is how long `svn info` results are reused.
const InfoCacheTTL = 2 * time.Minute

// BranchLayout tells where branches and tags live below the repository root.
type BranchLayout struct {
	Trunk    string
	Branches []string
	Tags     []string
}

// StatusOptions selects what `svn status` reports.
type StatusOptions struct {
	IncludeIgnored     bool
	IncludeExternals   bool
	CheckRemoteChanges bool
}

// LogOptions selects a revision range of `svn log`.
type LogOptions struct {
	Target  string // relative path or URL, the working copy root when empty
	From    string
	To      string
	Limit   int
	Verbose bool
}

// ResolveActions lists the values accepted by `svn resolve --accept`.
var ResolveActions = []string{"base", "working", "mine-conflict", "theirs-conflict", "mine-full", "theirs-full"}

type cachedInfo struct {
	info    *Info
	expires time.Time
}

// BaseRepository issues svn commands for one working copy.
type BaseRepository struct {
	svn    *Svn
	root   string
	layout BranchLayout
	now    func() time.Time

	mu       sync.Mutex
	username string
	password string
	cache    map[string]cachedInfo
}

// RepositoryOption configures a BaseRepository.
type RepositoryOption func(*BaseRepository)

// WithLayout sets the branch layout used for naming branches.
func WithLayout(layout BranchLayout) RepositoryOption {
	return func(r *BaseRepository) { r.layout = layout }
}

// WithClock overrides the clock used by the info cache.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *BaseRepository) { r.now = now }
}

// NewBaseRepository returns the command layer for the working copy at root.
func NewBaseRepository(s *Svn, root string, opts ...RepositoryOption) *BaseRepository {
	r := &BaseRepository{
		svn:  s,
		root: root,
		layout: BranchLayout{
			Trunk:    "trunk",
			Branches: []string{"branches"},
			Tags:     []string{"tags"},
		},
		now:   time.Now,
		cache: make(map[string]cachedInfo),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the working-copy root directory.
func (r *BaseRepository) Root() string { return r.root }

// Svn returns the underlying client.
func (r *BaseRepository) Svn() *Svn { return r.svn }

// SetCredentials stores credentials used by every following call.
func (r *BaseRepository) SetCredentials(username, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.username = username
	r.password = password
}

// Username returns the stored username.
func (r *BaseRepository) Username() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.username
}

func (r *BaseRepository) exec(ctx context.Context, args []string, log bool) (ExecResult, error) {
	r.mu.Lock()
	opts := ExecOptions{Username: r.username, Password: r.password, Log: log}
	r.mu.Unlock()
	return r.svn.Exec(ctx, r.root, args, opts)
}

// Status runs `svn status --xml`.
func (r *BaseRepository) Status(ctx context.Context, opts StatusOptions) ([]FileStatus, error) {
	args := []string{"stat", "--xml"}
	if opts.CheckRemoteChanges {
		args = append(args, "--show-updates")
	}
	if opts.IncludeIgnored {
		args = append(args, "--no-ignore")
	}
	if !opts.IncludeExternals {
		args = append(args, "--ignore-externals")
	}
	res, err := r.exec(ctx, args, false)
	if err != nil {
		return nil, err
	}
	return ParseStatusXML(res.Stdout)
}

// Info returns `svn info` for a path relative to the root (the root itself
// when empty). Results are cached for InfoCacheTTL unless skipCache is set.
func (r *BaseRepository) Info(ctx context.Context, target, revision string, skipCache bool) (*Info, error) {
	if err := ValidateRevision(revision); err != nil {
		return nil, err
	}
	if target == "" {
		target = "."
	}
	key := target + "@" + revision

	if !skipCache {
		r.mu.Lock()
		entry, ok := r.cache[key]
		r.mu.Unlock()
		if ok && r.now().Before(entry.expires) {
			return entry.info, nil
		}
	}

	args := []string{"info", "--xml"}
	if revision != "" {
		args = append(args, "-r", revision)
	}
	args = append(args, target)
	res, err := r.exec(ctx, args, false)
	if err != nil {
		return nil, err
	}
	info, err := ParseInfoXML(res.Stdout)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = cachedInfo{info: info, expires: r.now().Add(InfoCacheTTL)}
	r.mu.Unlock()
	return info, nil
}

// ResetInfoCache drops all cached info results.
func (r *BaseRepository) ResetInfoCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]cachedInfo)
}

// RepositoryUUID returns the uuid of the repository behind target.
func (r *BaseRepository) RepositoryUUID(ctx context.Context, target string) (string, error) {
	info, err := r.Info(ctx, target, "", false)
	if err != nil {
		return "", err
	}
	return info.RepositoryUUID, nil
}

// PathNormalizer returns a normalizer built from the root's info.
func (r *BaseRepository) PathNormalizer(ctx context.Context) (*PathNormalizer, error) {
	info, err := r.Info(ctx, "", "", false)
	if err != nil {
		return nil, err
	}
	return NewPathNormalizer(info)
}

// CurrentBranch returns the checked out branch, e.g. "trunk",
// "branches/feature" or "tags/v1.0". Checkouts outside the layout return
// their root-relative path.
func (r *BaseRepository) CurrentBranch(ctx context.Context) (string, error) {
	info, err := r.Info(ctx, "", "", false)
	if err != nil {
		return "", err
	}
	rel, ok := urlRelative(strings.TrimRight(info.RepositoryRoot, "/"), info.URL)
	if !ok {
		return "", fmt.Errorf("url %s is outside repository %s", info.URL, info.RepositoryRoot)
	}
	return r.layout.BranchName(rel), nil
}

// BranchName maps a root-relative path to its branch name.
func (l BranchLayout) BranchName(rel string) string {
	rel = strings.Trim(rel, "/")
	if l.Trunk != "" && (rel == l.Trunk || strings.HasPrefix(rel, l.Trunk+"/")) {
		return l.Trunk
	}
	dirs := make([]string, 0, len(l.Branches)+len(l.Tags))
	dirs = append(dirs, l.Branches...)
	dirs = append(dirs, l.Tags...)
	// Longest directory first so "branches/release" wins over "branches".
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		dir = strings.Trim(dir, "/")
		if dir == "" || !strings.HasPrefix(rel, dir+"/") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(rel, dir+"/"), "/")
		return dir + "/" + name
	}
	return rel
}

// Show returns the contents of a file at revision (BASE when empty).
func (r *BaseRepository) Show(ctx context.Context, file, revision string) (string, error) {
	if err := ValidateRevision(revision); err != nil {
		return "", err
	}
	args := []string{"cat"}
	if revision != "" {
		args = append(args, "-r", revision)
	}
	args = append(args, file)
	res, err := r.exec(ctx, args, false)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Add schedules files for addition.
func (r *BaseRepository) Add(ctx context.Context, files []string) error {
	_, err := r.exec(ctx, append([]string{"add"}, files...), true)
	return err
}

// AddChangelist moves files to the named changelist.
func (r *BaseRepository) AddChangelist(ctx context.Context, files []string, name string) error {
	if name == "" {
		return fmt.Errorf("changelist name must not be empty")
	}
	args := append([]string{"changelist", name}, files...)
	_, err := r.exec(ctx, args, true)
	return err
}

// RemoveChangelist removes files from whatever changelist they are in.
func (r *BaseRepository) RemoveChangelist(ctx context.Context, files []string) error {
	args := append([]string{"changelist", "--remove"}, files...)
	_, err := r.exec(ctx, args, true)
	return err
}

// BranchURL resolves a branch name or root-relative path to a URL.
// Names without a slash are placed in the first branches directory.
func (r *BaseRepository) BranchURL(ctx context.Context, name string) (string, error) {
	if strings.Contains(name, "://") {
		return name, nil
	}
	info, err := r.Info(ctx, "", "", false)
	if err != nil {
		return "", err
	}
	root := strings.TrimRight(info.RepositoryRoot, "/")
	name = strings.Trim(name, "/")
	if name == "" {
		return "", fmt.Errorf("branch name must not be empty")
	}
	if !strings.Contains(name, "/") && name != r.layout.Trunk && len(r.layout.Branches) > 0 {
		name = strings.Trim(r.layout.Branches[0], "/") + "/" + name
	}
	return root + "/" + escapePath(name), nil
}

// NewBranch copies the current branch to name and switches to it.
func (r *BaseRepository) NewBranch(ctx context.Context, name, message string) error {
	info, err := r.Info(ctx, "", "", false)
	if err != nil {
		return err
	}
	dest, err := r.BranchURL(ctx, name)
	if err != nil {
		return err
	}
	if message == "" {
		message = "Created new branch " + name
	}
	if _, err := r.exec(ctx, []string{"copy", info.URL, dest, "-m", message}, true); err != nil {
		return err
	}
	return r.SwitchBranch(ctx, dest, false)
}

// SwitchBranch switches the working copy to a branch name or URL.
func (r *BaseRepository) SwitchBranch(ctx context.Context, name string, force bool) error {
	target, err := r.BranchURL(ctx, name)
	if err != nil {
		return err
	}
	args := []string{"switch", target}
	if force {
		args = append(args, "--ignore-ancestry")
	}
	_, err = r.exec(ctx, args, true)
	r.ResetInfoCache()
	return err
}

var revisionLine = regexp.MustCompile(`(?m)^(At|Updated to|Committed) revision (\d+)\.`)

// Update brings the working copy to HEAD and returns svn's summary line.
func (r *BaseRepository) Update(ctx context.Context, ignoreExternals bool) (string, error) {
	args := []string{"update"}
	if ignoreExternals {
		args = append(args, "--ignore-externals")
	}
	res, err := r.exec(ctx, args, true)
	r.ResetInfoCache()
	if err != nil {
		return "", err
	}
	if m := revisionLine.FindString(res.Stdout); m != "" {
		return m, nil
	}
	return strings.TrimSpace(lastLine(res.Stdout)), nil
}

// Resolve marks conflicted files resolved with the given action.
func (r *BaseRepository) Resolve(ctx context.Context, files []string, action string) error {
	valid := false
	for _, a := range ResolveActions {
		if a == action {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid resolve action %q, expected one of %s", action, strings.Join(ResolveActions, ", "))
	}
	args := append([]string{"resolve", "--accept", action}, files...)
	_, err := r.exec(ctx, args, true)
	return err
}

// Commit commits files and returns the "Committed revision N." line.
func (r *BaseRepository) Commit(ctx context.Context, message string, files []string) (string, error) {
	args := append([]string{"commit", "-m", message}, files...)
	res, err := r.exec(ctx, args, true)
	if err != nil {
		return "", err
	}
	r.ResetInfoCache()
	if m := revisionLine.FindString(res.Stdout); m != "" {
		return m, nil
	}
	return strings.TrimSpace(lastLine(res.Stdout)), nil
}

// CommittedRevision extracts N from a "Committed revision N." message.
func CommittedRevision(message string) (int, bool) {
	m := revisionLine.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	return n, err == nil
}

// Revert discards local changes. depth defaults to "empty".
func (r *BaseRepository) Revert(ctx context.Context, files []string, depth string) error {
	if depth == "" {
		depth = "empty"
	}
	args := append([]string{"revert", "--depth", depth}, files...)
	_, err := r.exec(ctx, args, true)
	return err
}

// Patch returns a unified diff of files, the whole working copy when empty.
func (r *BaseRepository) Patch(ctx context.Context, files []string) (string, error) {
	res, err := r.exec(ctx, append([]string{"diff"}, files...), true)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// PatchChangelist returns a unified diff of one changelist.
func (r *BaseRepository) PatchChangelist(ctx context.Context, changelist string) (string, error) {
	res, err := r.exec(ctx, []string{"diff", "--changelist", changelist}, true)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Remove schedules files for deletion.
func (r *BaseRepository) Remove(ctx context.Context, files []string, keepLocal bool) error {
	args := []string{"remove"}
	if keepLocal {
		args = append(args, "--keep-local")
	}
	args = append(args, files...)
	_, err := r.exec(ctx, args, true)
	return err
}

// Log returns log entries for a revision range.
func (r *BaseRepository) Log(ctx context.Context, opts LogOptions) ([]LogEntry, error) {
	for _, rev := range []string{opts.From, opts.To} {
		if err := ValidateRevision(rev); err != nil {
			return nil, err
		}
	}
	from, to := opts.From, opts.To
	if from == "" {
		from = "HEAD"
	}
	if to == "" {
		to = "1"
	}
	args := []string{"log", "-r", from + ":" + to}
	if opts.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opts.Limit))
	}
	args = append(args, "--xml")
	if opts.Verbose {
		args = append(args, "-v")
	}
	if opts.Target != "" {
		args = append(args, opts.Target)
	}
	res, err := r.exec(ctx, args, false)
	if err != nil {
		return nil, err
	}
	return ParseLogXML(res.Stdout)
}

// List returns the entries of a directory or URL.
func (r *BaseRepository) List(ctx context.Context, target string) ([]ListEntry, error) {
	if target == "" {
		target = "."
	}
	res, err := r.exec(ctx, []string{"list", "--xml", target}, false)
	if err != nil {
		return nil, err
	}
	return ParseListXML(res.Stdout)
}

// DiffSummary lists paths changed in target between two revisions.
func (r *BaseRepository) DiffSummary(ctx context.Context, target, from, to string) ([]DiffSummaryEntry, error) {
	for _, rev := range []string{from, to} {
		if err := ValidateRevision(rev); err != nil {
			return nil, err
		}
	}
	if target == "" {
		target = "."
	}
	args := []string{"diff", "--xml", "--summarize"}
	if from != "" {
		rng := from
		if to != "" {
			rng += ":" + to
		}
		args = append(args, "-r", rng)
	}
	args = append(args, target)
	res, err := r.exec(ctx, args, false)
	if err != nil {
		return nil, err
	}
	return ParseDiffSummaryXML(res.Stdout)
}

// Cleanup runs `svn cleanup`.
func (r *BaseRepository) Cleanup(ctx context.Context) error {
	_, err := r.exec(ctx, []string{"cleanup"}, true)
	return err
}

// FinishCheckout completes an interrupted checkout.
func (r *BaseRepository) FinishCheckout(ctx context.Context) error {
	_, err := r.exec(ctx, []string{"update", "--set-depth", "infinity"}, true)
	r.ResetInfoCache()
	return err
}

// propertyMissing reports the warning svn 1.9+ prints for propget on an
// unset property, which comes with a non-zero exit.
func propertyMissing(err error) bool {
	var svnErr *Error
	if !errors.As(err, &svnErr) {
		return false
	}
	return strings.Contains(svnErr.Stderr, "W200017") || svnErr.Code == "E200017"
}

// AddToIgnore appends patterns to svn:ignore of dir.
func (r *BaseRepository) AddToIgnore(ctx context.Context, patterns []string, dir string, recursive bool) error {
	if dir == "" {
		dir = "."
	}
	res, err := r.exec(ctx, []string{"propget", "svn:ignore", dir}, false)
	current := ""
	switch {
	case err == nil:
		current = res.Stdout
	case propertyMissing(err):
	default:
		return err
	}

	seen := make(map[string]bool)
	var merged []string
	for _, line := range append(strings.Split(current, "\n"), patterns...) {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		merged = append(merged, line)
	}

	args := []string{"propset", "svn:ignore", strings.Join(merged, "\n"), dir}
	if recursive {
		args = append(args, "--recursive")
	}
	_, err = r.exec(ctx, args, true)
	return err
}

// Rename moves a versioned path.
func (r *BaseRepository) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := r.exec(ctx, []string{"rename", oldPath, newPath}, true)
	return err
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
