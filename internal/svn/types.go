package svn

import "time"

// Status is a working-copy or repository item status as printed by
// `svn status --xml`.
type Status string

const (
	StatusAdded       Status = "added"
	StatusConflicted  Status = "conflicted"
	StatusDeleted     Status = "deleted"
	StatusExternal    Status = "external"
	StatusIgnored     Status = "ignored"
	StatusIncomplete  Status = "incomplete"
	StatusMerged      Status = "merged"
	StatusMissing     Status = "missing"
	StatusModified    Status = "modified"
	StatusNone        Status = "none"
	StatusNormal      Status = "normal"
	StatusObstructed  Status = "obstructed"
	StatusReplaced    Status = "replaced"
	StatusUnversioned Status = "unversioned"
)

// PropStatus is the property status of an item.
type PropStatus string

const (
	PropsNone       PropStatus = "none"
	PropsNormal     PropStatus = "normal"
	PropsConflicted PropStatus = "conflicted"
	PropsModified   PropStatus = "modified"
)

// IsUnchanged reports whether the property status carries no change.
func (p PropStatus) IsUnchanged() bool {
	return p == "" || p == PropsNone || p == PropsNormal
}

// CommitInfo is the last-changed metadata attached to an entry.
type CommitInfo struct {
	Revision string
	Author   string
	Date     time.Time
}

// WcFlags are the working-copy flags of a status entry.
type WcFlags struct {
	Locked   bool // wc-locked or a repository lock annotation
	Switched bool
}

// RemoteStatus is the repository-side status from `svn status -u`.
type RemoteStatus struct {
	Item  Status
	Props PropStatus
}

// FileStatus is one row of `svn status --xml`.
type FileStatus struct {
	Path        string // relative to the status target, "." for the root
	Status      Status
	Props       PropStatus
	Changelist  string
	Rename      string // moved-from source of an added item
	WcStatus    WcFlags
	Commit      *CommitInfo
	ReposStatus *RemoteStatus
	Kind        string
}

// Info is the parsed entry of `svn info --xml`.
type Info struct {
	Path           string
	Kind           string
	Revision       string
	URL            string
	RelativeURL    string
	RepositoryRoot string
	RepositoryUUID string
	WcRoot         string // empty for remote targets
	Schedule       string
	Depth          string
	Commit         *CommitInfo
}

// ListEntry is one row of `svn list --xml`.
type ListEntry struct {
	Kind   string
	Name   string
	Size   int64
	Commit *CommitInfo
}

// LogPath is a changed path in a log entry.
type LogPath struct {
	Path         string
	Action       string
	Kind         string
	PropMods     bool
	TextMods     bool
	CopyFromPath string
	CopyFromRev  string
}

// LogEntry is one revision of `svn log --xml`.
type LogEntry struct {
	Revision string
	Author   string
	Date     time.Time
	Message  string
	Paths    []LogPath
}

// DiffSummaryEntry is one path of `svn diff --xml --summarize`.
type DiffSummaryEntry struct {
	Path  string
	Item  Status
	Props PropStatus
	Kind  string
}
