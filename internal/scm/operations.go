package scm

import (
	"sort"
	"sync"
)

// Operation names a logical repository operation.
type Operation string

const (
	OpAdd              Operation = "Add"
	OpAddChangelist    Operation = "AddChangelist"
	OpCleanUp          Operation = "CleanUp"
	OpCommit           Operation = "Commit"
	OpCurrentBranch    Operation = "CurrentBranch"
	OpIgnore           Operation = "Ignore"
	OpInfo             Operation = "Info"
	OpLog              Operation = "Log"
	OpNewBranch        Operation = "NewBranch"
	OpPatch            Operation = "Patch"
	OpRemove           Operation = "Remove"
	OpRemoveChangelist Operation = "RemoveChangelist"
	OpRename           Operation = "Rename"
	OpResolve          Operation = "Resolve"
	OpRevert           Operation = "Revert"
	OpShow             Operation = "Show"
	OpStatus           Operation = "Status"
	OpStatusRemote     Operation = "StatusRemote"
	OpSwitchBranch     Operation = "SwitchBranch"
	OpUpdate           Operation = "Update"
)

// IsReadOnly reports whether op leaves the working copy untouched.
// Read-only operations do not trigger a status scan when they finish.
func IsReadOnly(op Operation) bool {
	switch op {
	case OpCurrentBranch, OpInfo, OpLog, OpShow:
		return true
	}
	return false
}

// ShowsProgress reports whether op is wrapped in a progress indicator.
func ShowsProgress(op Operation) bool {
	switch op {
	case OpCurrentBranch, OpInfo, OpShow:
		return false
	}
	return true
}

// OperationsTracker counts in-flight operations.
type OperationsTracker struct {
	mu     sync.Mutex
	counts map[Operation]int
}

// NewOperationsTracker creates an empty tracker.
func NewOperationsTracker() *OperationsTracker {
	return &OperationsTracker{counts: make(map[Operation]int)}
}

// Start records that op began.
func (t *OperationsTracker) Start(op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[op]++
}

// End records that op finished. Counts never go negative.
func (t *OperationsTracker) End(op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.counts[op] - 1
	if n <= 0 {
		delete(t.counts, op)
		return
	}
	t.counts[op] = n
}

// IsRunning reports whether op has a positive count.
func (t *OperationsTracker) IsRunning(op Operation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[op] > 0
}

// IsIdle reports whether only read-only operations are running.
func (t *OperationsTracker) IsIdle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for op := range t.counts {
		if !IsReadOnly(op) {
			return false
		}
	}
	return true
}

// Running returns the running operations, sorted by name.
func (t *OperationsTracker) Running() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	ops := make([]Operation, 0, len(t.counts))
	for op := range t.counts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}
