package scm

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/svn"
)

// conflictArtifact matches the files svn leaves next to a conflicted file.
var conflictArtifact = regexp.MustCompile(`^(.+?)\.(mine|working|merge-\w+\.r\d+|r\d+)$`)

// modelState is the outcome of one reconciliation pass.
type modelState struct {
	changes      []Resource
	conflicts    []Resource
	unversioned  []Resource
	changelists  map[string][]Resource
	remote       []Resource
	ignored      []string
	externals    []string
	isIncomplete bool
	needCleanUp  bool
}

// updateModelState re-derives every resource group from a fresh status scan.
func (r *Repository) updateModelState(ctx context.Context, checkRemote bool) error {
	cfg := r.Config()

	statuses, err := r.base.Status(ctx, svn.StatusOptions{
		IncludeIgnored:     true,
		IncludeExternals:   cfg.CombineExternalIfSameServer,
		CheckRemoteChanges: checkRemote,
	})
	if err != nil {
		return err
	}

	externals := r.externalBoundaries(ctx, statuses, cfg.CombineExternalIfSameServer)
	next := r.classify(statuses, externals)

	r.mu.Lock()
	r.changes = next.changes
	r.conflicts = next.conflicts
	r.unversioned = next.unversioned
	r.changelists = next.changelists
	r.ignored = next.ignored
	r.externals = next.externals
	r.isIncomplete = next.isIncomplete
	r.needCleanUp = next.needCleanUp
	r.count = countLocked(r, next)

	remoteChanged := false
	if checkRemote {
		remoteChanged = len(r.remote) != len(next.remote)
		r.remote = next.remote
		r.hasRemote = true
	}
	count := r.count
	r.mu.Unlock()

	r.logger.Debug("status reconciled",
		zap.Int("count", count),
		zap.Int("changes", len(next.changes)),
		zap.Int("conflicts", len(next.conflicts)),
		zap.Int("unversioned", len(next.unversioned)),
		zap.Int("changelists", len(next.changelists)),
		zap.Bool("remote", checkRemote))

	if remoteChanged {
		r.onDidChangeRemoteChangedFiles.Emit(struct{}{})
	}
	r.onDidChangeStatus.Emit(struct{}{})

	if _, err := r.CurrentBranch(ctx); err != nil {
		r.logger.Debug("failed to refresh current branch", zap.Error(err))
	}
	return nil
}

// externalBoundaries returns the relative paths of externals whose contents
// are not part of this working copy. With combine enabled, externals from
// the same repository are merged into the parent instead.
func (r *Repository) externalBoundaries(ctx context.Context, statuses []svn.FileStatus, combine bool) []string {
	var externals []string
	for _, s := range statuses {
		if s.Status == svn.StatusExternal {
			externals = append(externals, s.Path)
		}
	}
	if !combine || len(externals) == 0 {
		return externals
	}

	parentUUID, err := r.base.RepositoryUUID(ctx, "")
	if err != nil {
		r.logger.Debug("failed to read repository uuid", zap.Error(err))
		return externals
	}
	var boundaries []string
	for _, ext := range externals {
		uuid, err := r.base.RepositoryUUID(ctx, ext)
		if err != nil {
			r.logger.Debug("failed to read external uuid", zap.String("external", ext), zap.Error(err))
			boundaries = append(boundaries, ext)
			continue
		}
		if uuid != parentUUID {
			boundaries = append(boundaries, ext)
		}
	}
	return boundaries
}

// classify sorts status entries into groups. It is a pure function of its
// inputs and the configuration.
func (r *Repository) classify(statuses []svn.FileStatus, externals []string) modelState {
	r.mu.RLock()
	cfg := r.cfg
	exclude := r.exclude
	r.mu.RUnlock()

	present := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		present[filepath.ToSlash(s.Path)] = true
	}

	next := modelState{
		changes:     []Resource{},
		conflicts:   []Resource{},
		unversioned: []Resource{},
		changelists: make(map[string][]Resource),
		remote:      []Resource{},
		ignored:     []string{},
		externals:   []string{},
	}
	for _, ext := range externals {
		next.externals = append(next.externals, r.abs(ext))
	}

	rootIncomplete := false
	switched := false
	for _, s := range statuses {
		rel := filepath.ToSlash(s.Path)

		if rel == "." {
			rootIncomplete = s.Status == svn.StatusIncomplete
			next.needCleanUp = s.WcStatus.Locked
			continue
		}
		if s.Status == svn.StatusExternal || insideAny(rel, externals) {
			continue
		}
		if s.WcStatus.Switched {
			switched = true
		}
		if s.WcStatus.Locked || s.WcStatus.Switched || s.Status == svn.StatusIncomplete {
			continue
		}
		if exclude.Match(rel) {
			continue
		}

		res := Resource{
			Path:       r.abs(s.Path),
			RelPath:    rel,
			Type:       s.Status,
			Props:      s.Props,
			Changelist: s.Changelist,
		}
		if s.Rename != "" {
			res.Rename = r.abs(s.Rename)
		}

		if s.ReposStatus != nil {
			next.remote = append(next.remote, Resource{
				Path:    res.Path,
				RelPath: rel,
				Type:    s.ReposStatus.Item,
				Props:   s.ReposStatus.Props,
				Remote:  true,
			})
		}

		switch {
		case (s.Status == svn.StatusNormal || s.Status == svn.StatusNone) && s.Props.IsUnchanged():
			continue
		case s.Status == svn.StatusIgnored:
			next.ignored = append(next.ignored, res.Path)
		case s.Status == svn.StatusConflicted:
			next.conflicts = append(next.conflicts, res)
		case s.Status == svn.StatusUnversioned:
			if cfg.HideUnversioned {
				if m := conflictArtifact.FindStringSubmatch(rel); m != nil && present[m[1]] {
					continue
				}
			}
			next.unversioned = append(next.unversioned, res)
		case s.Changelist != "":
			next.changelists[s.Changelist] = append(next.changelists[s.Changelist], res)
		default:
			next.changes = append(next.changes, res)
		}
	}
	next.isIncomplete = rootIncomplete || switched

	sortResources(next.changes)
	sortResources(next.conflicts)
	sortResources(next.unversioned)
	sortResources(next.remote)
	for _, rs := range next.changelists {
		sortResources(rs)
	}
	sort.Strings(next.ignored)
	return next
}

// countLocked computes the badge count for next using r.cfg.
func countLocked(r *Repository, next modelState) int {
	count := len(next.changes) + len(next.conflicts)
	for name, rs := range next.changelists {
		if r.cfg.CountIgnoreOnCommit || !r.cfg.IsIgnoredOnCommit(name) {
			count += len(rs)
		}
	}
	if r.cfg.CountUnversioned {
		count += len(next.unversioned)
	}
	return count
}

func insideAny(rel string, dirs []string) bool {
	for _, dir := range dirs {
		d := filepath.ToSlash(dir)
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

func sortStrings(s []string) { sort.Strings(s) }
