package svn

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// PathKind tags the form of a path given to PathNormalizer.Parse.
type PathKind int

const (
	// LocalRelative is a path relative to the working-copy root.
	LocalRelative PathKind = iota
	// LocalFull is an absolute filesystem path inside the working copy.
	LocalFull
	// RemoteFull is a repository URL or a repository-root relative "/path".
	RemoteFull
)

func (k PathKind) String() string {
	switch k {
	case LocalRelative:
		return "local-relative"
	case LocalFull:
		return "local-full"
	case RemoteFull:
		return "remote-full"
	}
	return fmt.Sprintf("PathKind(%d)", int(k))
}

var revisionPattern = regexp.MustCompile(`^(HEAD|BASE|COMMITTED|PREV|\d+)$`)

// ValidateRevision accepts HEAD, BASE, COMMITTED, PREV, a non-negative
// integer, or the empty string (no revision).
func ValidateRevision(rev string) error {
	if rev == "" || revisionPattern.MatchString(rev) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRevision, rev)
}

// PathNormalizer converts between local paths, repository-root relative
// paths and full URLs for one working copy. It is immutable.
type PathNormalizer struct {
	repoRoot     string // URL without trailing slash
	branchPath   string // root-relative, decoded, starts with "/"
	checkoutRoot string // local directory, empty for remote-only contexts
}

// NewPathNormalizer builds a normalizer from an `svn info` snapshot.
func NewPathNormalizer(info *Info) (*PathNormalizer, error) {
	if info == nil || info.RepositoryRoot == "" {
		return nil, fmt.Errorf("path normalizer: missing repository root")
	}
	root := strings.TrimRight(info.RepositoryRoot, "/")
	branch := "/"
	if info.URL != "" {
		rel, ok := urlRelative(root, info.URL)
		if !ok {
			return nil, fmt.Errorf("path normalizer: %s is not inside %s", info.URL, root)
		}
		branch = rel
	}
	n := &PathNormalizer{repoRoot: root, branchPath: branch}
	if info.WcRoot != "" {
		n.checkoutRoot = filepath.Clean(info.WcRoot)
	}
	return n, nil
}

// RepositoryRoot returns the repository root URL.
func (n *PathNormalizer) RepositoryRoot() string { return n.repoRoot }

// BranchPath returns the root-relative path of the checked out branch.
func (n *PathNormalizer) BranchPath() string { return n.branchPath }

// CheckoutRoot returns the working-copy root, empty when unknown.
func (n *PathNormalizer) CheckoutRoot() string { return n.checkoutRoot }

// Parse normalizes input of the given kind into a ResourceRef.
func (n *PathNormalizer) Parse(input string, kind PathKind, revision string) (*ResourceRef, error) {
	if err := ValidateRevision(revision); err != nil {
		return nil, err
	}

	var remote string
	switch kind {
	case LocalFull:
		if n.checkoutRoot == "" {
			return nil, ErrLocalPathNotSupported
		}
		if !filepath.IsAbs(input) {
			return nil, fmt.Errorf("path %q is not absolute", input)
		}
		rel, err := filepath.Rel(n.checkoutRoot, filepath.Clean(input))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("path %q is outside the working copy %s", input, n.checkoutRoot)
		}
		remote = joinRemote(n.branchPath, filepath.ToSlash(rel))
	case LocalRelative:
		if n.checkoutRoot == "" {
			return nil, ErrLocalPathNotSupported
		}
		if filepath.IsAbs(input) || strings.HasPrefix(input, "/") {
			return nil, fmt.Errorf("path %q is not relative", input)
		}
		rel := path.Clean(filepath.ToSlash(input))
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return nil, fmt.Errorf("path %q is outside the working copy", input)
		}
		remote = joinRemote(n.branchPath, rel)
	case RemoteFull:
		if strings.Contains(input, "://") {
			rel, ok := urlRelative(n.repoRoot, input)
			if !ok {
				return nil, fmt.Errorf("url %q is outside the repository %s", input, n.repoRoot)
			}
			remote = rel
		} else if strings.HasPrefix(input, "/") {
			remote = path.Clean(input)
		} else {
			return nil, fmt.Errorf("path %q is neither a url nor root-relative", input)
		}
	default:
		return nil, fmt.Errorf("unknown path kind %v", kind)
	}

	return &ResourceRef{n: n, remotePath: remote, revision: revision}, nil
}

// ResourceRef is a normalized reference to a repository item.
type ResourceRef struct {
	n          *PathNormalizer
	remotePath string
	revision   string
}

// RemotePath returns the decoded path relative to the repository root,
// starting with "/".
func (r *ResourceRef) RemotePath() string { return r.remotePath }

// RemoteFullPath returns the full, percent-encoded repository URL.
func (r *ResourceRef) RemoteFullPath() string {
	if r.remotePath == "/" {
		return r.n.repoRoot
	}
	return r.n.repoRoot + "/" + escapePath(r.remotePath)
}

// RelativeFromBranch returns the path relative to the branch root.
// Items outside the branch yield a "../" prefixed path.
func (r *ResourceRef) RelativeFromBranch() string {
	return posixRel(r.n.branchPath, r.remotePath)
}

// LocalFullPath returns the filesystem path of the item. ok is false when
// there is no checkout or the item lives outside the checked out branch.
func (r *ResourceRef) LocalFullPath() (string, bool) {
	if r.n.checkoutRoot == "" {
		return "", false
	}
	rel := r.RelativeFromBranch()
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return filepath.Join(r.n.checkoutRoot, filepath.FromSlash(rel)), true
}

// Revision returns the revision tag, empty when none was given.
func (r *ResourceRef) Revision() string { return r.revision }

// String returns the "url@rev" peg form accepted by svn.
func (r *ResourceRef) String() string {
	if r.revision == "" {
		return r.RemoteFullPath()
	}
	return r.RemoteFullPath() + "@" + r.revision
}

// urlRelative returns target's decoded path below root as "/..." when
// target is root or lives below it. Both URLs may be percent-encoded.
func urlRelative(root, target string) (string, bool) {
	ru, err := url.Parse(root)
	if err != nil {
		return "", false
	}
	tu, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(ru.Scheme, tu.Scheme) || !strings.EqualFold(ru.Host, tu.Host) {
		return "", false
	}
	rp := strings.TrimRight(ru.Path, "/")
	tp := strings.TrimRight(tu.Path, "/")
	if tp == rp {
		return "/", true
	}
	if !strings.HasPrefix(tp, rp+"/") {
		return "", false
	}
	return path.Clean(strings.TrimPrefix(tp, rp)), true
}

// escapePath percent-encodes each segment of a slash-separated path.
func escapePath(p string) string {
	segs := splitPath(p)
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

func joinRemote(base, rel string) string {
	return path.Join(base, rel)
}

// posixRel is filepath.Rel for clean slash-separated absolute paths.
func posixRel(base, target string) string {
	if base == target {
		return "."
	}
	bp := splitPath(base)
	tp := splitPath(target)
	i := 0
	for i < len(bp) && i < len(tp) && bp[i] == tp[i] {
		i++
	}
	parts := make([]string, 0, len(bp)-i+len(tp)-i)
	for range bp[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, tp[i:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
