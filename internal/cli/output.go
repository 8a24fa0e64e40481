package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/statuscache"
	"github.com/bolasblack/svnscm/internal/svn"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q, expected text, json or yaml", format)
}

// writeOutput encodes v as json or yaml, or calls text for the text format.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

type statusView struct {
	Root        string      `json:"root" yaml:"root"`
	Branch      string      `json:"branch,omitempty" yaml:"branch,omitempty"`
	Count       int         `json:"count" yaml:"count"`
	Incomplete  bool        `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	NeedCleanUp bool        `json:"needCleanUp,omitempty" yaml:"needCleanUp,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	Groups      []groupView `json:"groups" yaml:"groups"`
}

type groupView struct {
	ID        string         `json:"id" yaml:"id"`
	Label     string         `json:"label" yaml:"label"`
	Resources []resourceView `json:"resources" yaml:"resources"`
}

type resourceView struct {
	Letter     string `json:"letter" yaml:"letter"`
	Path       string `json:"path" yaml:"path"`
	Type       string `json:"type" yaml:"type"`
	Props      string `json:"props,omitempty" yaml:"props,omitempty"`
	Rename     string `json:"rename,omitempty" yaml:"rename,omitempty"`
	Changelist string `json:"changelist,omitempty" yaml:"changelist,omitempty"`
	Remote     bool   `json:"remote,omitempty" yaml:"remote,omitempty"`
}

func newStatusView(root, branch string, count int, groups []scm.ResourceGroup) statusView {
	v := statusView{Root: root, Branch: branch, Count: count, Groups: make([]groupView, 0, len(groups))}
	for _, g := range groups {
		gv := groupView{ID: g.ID, Label: g.Label, Resources: make([]resourceView, 0, len(g.Resources))}
		for _, r := range g.Resources {
			rv := resourceView{
				Letter:     r.Letter(),
				Path:       r.RelPath,
				Type:       string(r.Type),
				Changelist: r.Changelist,
				Remote:     r.Remote,
			}
			if !r.Props.IsUnchanged() {
				rv.Props = string(r.Props)
			}
			if r.Rename != "" {
				rv.Rename = relativeTo(root, r.Rename)
			}
			gv.Resources = append(gv.Resources, rv)
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

func statusViewFromRepository(repo *scm.Repository) statusView {
	v := newStatusView(repo.Root(), repo.Branch(), repo.Count(), repo.Groups())
	v.Incomplete = repo.IsIncomplete()
	v.NeedCleanUp = repo.NeedCleanUp()
	return v
}

func statusViewFromSnapshot(snap *statuscache.Snapshot) statusView {
	v := newStatusView(snap.Root, snap.Branch, snap.Count, snap.Groups)
	updated := snap.UpdatedAt
	v.UpdatedAt = &updated
	return v
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

type statusStyles struct {
	header  lipgloss.Style
	group   lipgloss.Style
	dim     lipgloss.Style
	warn    lipgloss.Style
	letters map[string]lipgloss.Style
}

func newStatusStyles(w io.Writer) statusStyles {
	renderer := lipgloss.NewRenderer(w)
	color := func(c string) lipgloss.Style { return renderer.NewStyle().Foreground(lipgloss.Color(c)) }
	return statusStyles{
		header: renderer.NewStyle().Bold(true),
		group:  renderer.NewStyle().Bold(true).Underline(true),
		dim:    color("8"),
		warn:   color("3"),
		letters: map[string]lipgloss.Style{
			"A": color("2"),
			"M": color("3"),
			"R": color("3"),
			"D": color("1"),
			"!": color("1"),
			"C": color("5"),
			"~": color("5"),
			"?": color("8"),
			"I": color("8"),
			"X": color("6"),
		},
	}
}

// renderStatus writes the human-readable status of v.
// Uses lipgloss for TTY-aware colored output (auto-strips ANSI when not a TTY).
func renderStatus(w io.Writer, v statusView) {
	styles := newStatusStyles(w)

	header := "Working copy " + v.Root
	if v.Branch != "" {
		header += " on " + v.Branch
	}
	_, _ = fmt.Fprintln(w, styles.header.Render(header))
	if v.UpdatedAt != nil {
		_, _ = fmt.Fprintln(w, styles.dim.Render("cached at "+v.UpdatedAt.Local().Format(time.RFC3339)))
	}
	if v.NeedCleanUp {
		_, _ = fmt.Fprintln(w, styles.warn.Render("⚠ working copy is locked, run 'svnscm cleanup'"))
	}
	if v.Incomplete {
		_, _ = fmt.Fprintln(w, styles.warn.Render("⚠ working copy is incomplete, run 'svnscm finish-checkout'"))
	}

	empty := true
	for _, g := range v.Groups {
		if len(g.Resources) == 0 {
			continue
		}
		empty = false
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "%s %s\n", styles.group.Render(g.Label), styles.dim.Render(fmt.Sprintf("(%d)", len(g.Resources))))
		for _, r := range g.Resources {
			_, _ = fmt.Fprintf(w, "  %s  %s\n", styles.letter(r.Letter), describeResource(r))
		}
	}
	if empty {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Nothing to commit, working copy clean.")
		return
	}

	noun := "change"
	if v.Count != 1 {
		noun = "changes"
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%d %s\n", v.Count, noun)
}

func (s statusStyles) letter(l string) string {
	if style, ok := s.letters[l]; ok {
		return style.Render(l)
	}
	return l
}

func describeResource(r resourceView) string {
	desc := r.Path
	if r.Rename != "" {
		desc += " (from " + r.Rename + ")"
	}
	if r.Props != "" {
		desc += " [props " + r.Props + "]"
	}
	return desc
}

// renderInfo writes info in the layout of `svn info`.
func renderInfo(w io.Writer, info *svn.Info) {
	line := func(label, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", label, value)
		}
	}
	line("Path", info.Path)
	line("Working Copy Root Path", info.WcRoot)
	line("URL", info.URL)
	line("Relative URL", info.RelativeURL)
	line("Repository Root", info.RepositoryRoot)
	line("Repository UUID", info.RepositoryUUID)
	line("Revision", info.Revision)
	line("Node Kind", info.Kind)
	line("Schedule", info.Schedule)
	line("Depth", info.Depth)
	if c := info.Commit; c != nil {
		line("Last Changed Author", c.Author)
		line("Last Changed Rev", c.Revision)
		if !c.Date.IsZero() {
			line("Last Changed Date", c.Date.Local().Format(time.RFC3339))
		}
	}
}

// renderLog writes log entries, newest first as svn returns them.
func renderLog(w io.Writer, entries []svn.LogEntry) {
	styles := newStatusStyles(w)
	for i, e := range entries {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		date := ""
		if !e.Date.IsZero() {
			date = e.Date.Local().Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s | %s | %s\n", styles.header.Render("r"+e.Revision), e.Author, styles.dim.Render(date))
		for _, p := range e.Paths {
			_, _ = fmt.Fprintf(w, "  %s %s\n", styles.letter(p.Action), p.Path)
		}
		msg := strings.TrimSpace(e.Message)
		if msg != "" {
			for _, l := range strings.Split(msg, "\n") {
				_, _ = fmt.Fprintf(w, "    %s\n", l)
			}
		}
	}
}
