package scm

import (
	"sort"

	"github.com/bolasblack/svnscm/internal/svn"
)

// Built-in group ids. Changelist groups use ChangelistGroupID.
const (
	GroupChanges       = "changes"
	GroupConflicts     = "conflicts"
	GroupUnversioned   = "unversioned"
	GroupRemoteChanges = "remotechanges"

	changelistPrefix = "changelist-"
)

// ChangelistGroupID returns the group id of a changelist.
func ChangelistGroupID(name string) string { return changelistPrefix + name }

// Resource is one file shown in a resource group.
type Resource struct {
	Path       string         `json:"path"`    // absolute local path
	RelPath    string         `json:"relPath"` // relative to the working-copy root
	Type       svn.Status     `json:"type"`
	Props      svn.PropStatus `json:"props,omitempty"`
	Rename     string         `json:"rename,omitempty"` // absolute path of the rename source
	Changelist string         `json:"changelist,omitempty"`
	Remote     bool           `json:"remote,omitempty"`
}

// Letter returns the one-letter code svn uses for the resource type.
func (r Resource) Letter() string {
	switch r.Type {
	case svn.StatusAdded:
		if r.Rename != "" {
			return "R"
		}
		return "A"
	case svn.StatusConflicted:
		return "C"
	case svn.StatusDeleted:
		return "D"
	case svn.StatusExternal:
		return "X"
	case svn.StatusIgnored:
		return "I"
	case svn.StatusIncomplete:
		return "!"
	case svn.StatusMerged:
		return "G"
	case svn.StatusMissing:
		return "!"
	case svn.StatusModified:
		return "M"
	case svn.StatusObstructed:
		return "~"
	case svn.StatusReplaced:
		return "R"
	case svn.StatusUnversioned:
		return "?"
	}
	if !r.Props.IsUnchanged() {
		return "M"
	}
	return " "
}

// ResourceGroup is a named snapshot of resources.
type ResourceGroup struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Resources []Resource `json:"resources"`
}

// Len returns the number of resources.
func (g ResourceGroup) Len() int { return len(g.Resources) }

func sortResources(rs []Resource) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].RelPath < rs[j].RelPath })
}

func cloneResources(rs []Resource) []Resource {
	if rs == nil {
		return []Resource{}
	}
	out := make([]Resource, len(rs))
	copy(out, rs)
	return out
}
