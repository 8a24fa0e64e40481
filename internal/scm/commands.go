package scm

import (
	"context"

	"github.com/bolasblack/svnscm/internal/svn"
)

// Status refreshes the resource groups.
func (r *Repository) Status(ctx context.Context) error {
	return do(ctx, r, OpStatus, func(context.Context) error { return nil })
}

// StatusRemote refreshes the resource groups including remote changes.
func (r *Repository) StatusRemote(ctx context.Context) error {
	return do(ctx, r, OpStatusRemote, func(context.Context) error { return nil })
}

// Show returns the contents of file at revision (BASE when empty).
func (r *Repository) Show(ctx context.Context, file, revision string) (string, error) {
	return run(ctx, r, OpShow, func(ctx context.Context) (string, error) {
		return r.base.Show(ctx, file, revision)
	})
}

// AddFiles schedules files for addition.
func (r *Repository) AddFiles(ctx context.Context, files []string) error {
	return do(ctx, r, OpAdd, func(ctx context.Context) error {
		return r.base.Add(ctx, files)
	})
}

// AddChangelist moves files into a changelist.
func (r *Repository) AddChangelist(ctx context.Context, files []string, name string) error {
	return do(ctx, r, OpAddChangelist, func(ctx context.Context) error {
		return r.base.AddChangelist(ctx, files, name)
	})
}

// RemoveChangelist removes files from their changelist.
func (r *Repository) RemoveChangelist(ctx context.Context, files []string) error {
	return do(ctx, r, OpRemoveChangelist, func(ctx context.Context) error {
		return r.base.RemoveChangelist(ctx, files)
	})
}

// CurrentBranch returns the checked out branch and caches it.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	branch, err := run(ctx, r, OpCurrentBranch, func(ctx context.Context) (string, error) {
		return r.base.CurrentBranch(ctx)
	})
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.branch = branch
	r.mu.Unlock()
	return branch, nil
}

// NewBranch creates a branch from the current one and switches to it.
func (r *Repository) NewBranch(ctx context.Context, name, message string) error {
	return do(ctx, r, OpNewBranch, func(ctx context.Context) error {
		return r.base.NewBranch(ctx, name, message)
	})
}

// SwitchBranch switches to a branch name or URL.
func (r *Repository) SwitchBranch(ctx context.Context, name string, force bool) error {
	return do(ctx, r, OpSwitchBranch, func(ctx context.Context) error {
		return r.base.SwitchBranch(ctx, name, force)
	})
}

// UpdateRevision updates the working copy to HEAD.
func (r *Repository) UpdateRevision(ctx context.Context, ignoreExternals bool) (string, error) {
	return run(ctx, r, OpUpdate, func(ctx context.Context) (string, error) {
		return r.base.Update(ctx, ignoreExternals)
	})
}

// Resolve marks conflicted files resolved using action.
func (r *Repository) Resolve(ctx context.Context, files []string, action string) error {
	return do(ctx, r, OpResolve, func(ctx context.Context) error {
		return r.base.Resolve(ctx, files, action)
	})
}

// Commit commits files with message.
func (r *Repository) Commit(ctx context.Context, message string, files []string) (string, error) {
	return run(ctx, r, OpCommit, func(ctx context.Context) (string, error) {
		return r.base.Commit(ctx, message, files)
	})
}

// Revert reverts files.
func (r *Repository) Revert(ctx context.Context, files []string, depth string) error {
	return do(ctx, r, OpRevert, func(ctx context.Context) error {
		return r.base.Revert(ctx, files, depth)
	})
}

// Patch returns a diff of files, the whole working copy when empty.
func (r *Repository) Patch(ctx context.Context, files []string) (string, error) {
	return run(ctx, r, OpPatch, func(ctx context.Context) (string, error) {
		return r.base.Patch(ctx, files)
	})
}

// PatchChangelist returns a diff of one changelist.
func (r *Repository) PatchChangelist(ctx context.Context, changelist string) (string, error) {
	return run(ctx, r, OpPatch, func(ctx context.Context) (string, error) {
		return r.base.PatchChangelist(ctx, changelist)
	})
}

// RemoveFiles schedules files for deletion.
func (r *Repository) RemoveFiles(ctx context.Context, files []string, keepLocal bool) error {
	return do(ctx, r, OpRemove, func(ctx context.Context) error {
		return r.base.Remove(ctx, files, keepLocal)
	})
}

// Log returns log entries.
func (r *Repository) Log(ctx context.Context, opts svn.LogOptions) ([]svn.LogEntry, error) {
	return run(ctx, r, OpLog, func(ctx context.Context) ([]svn.LogEntry, error) {
		return r.base.Log(ctx, opts)
	})
}

// Cleanup runs svn cleanup.
func (r *Repository) Cleanup(ctx context.Context) error {
	return do(ctx, r, OpCleanUp, func(ctx context.Context) error {
		return r.base.Cleanup(ctx)
	})
}

// FinishCheckout completes an interrupted checkout.
func (r *Repository) FinishCheckout(ctx context.Context) error {
	return do(ctx, r, OpSwitchBranch, func(ctx context.Context) error {
		return r.base.FinishCheckout(ctx)
	})
}

// AddToIgnore adds patterns to svn:ignore of dir.
func (r *Repository) AddToIgnore(ctx context.Context, patterns []string, dir string, recursive bool) error {
	return do(ctx, r, OpIgnore, func(ctx context.Context) error {
		return r.base.AddToIgnore(ctx, patterns, dir, recursive)
	})
}

// Rename moves a versioned path.
func (r *Repository) Rename(ctx context.Context, oldPath, newPath string) error {
	return do(ctx, r, OpRename, func(ctx context.Context) error {
		return r.base.Rename(ctx, oldPath, newPath)
	})
}

// Info returns `svn info` for a path, bypassing the cache.
func (r *Repository) Info(ctx context.Context, path string) (*svn.Info, error) {
	return run(ctx, r, OpInfo, func(ctx context.Context) (*svn.Info, error) {
		return r.base.Info(ctx, path, "", true)
	})
}
