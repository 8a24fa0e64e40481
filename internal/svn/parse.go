package svn

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"time"
)

// XML shapes of svn's --xml outputs. Only fields svnscm uses are listed;
// unknown elements are ignored by encoding/xml. Repeated children always
// decode into slices, so a single <entry> yields a one-element result.

type commitXML struct {
	Revision string `xml:"revision,attr"`
	Author   string `xml:"author"`
	Date     string `xml:"date"`
}

type lockXML struct {
	Token string `xml:"token"`
	Owner string `xml:"owner"`
}

type statusXML struct {
	XMLName     xml.Name              `xml:"status"`
	Targets     []statusTargetXML     `xml:"target"`
	Changelists []statusChangelistXML `xml:"changelist"`
}

type statusTargetXML struct {
	Path    string           `xml:"path,attr"`
	Entries []statusEntryXML `xml:"entry"`
}

type statusChangelistXML struct {
	Name    string           `xml:"name,attr"`
	Entries []statusEntryXML `xml:"entry"`
}

type statusEntryXML struct {
	Path     string `xml:"path,attr"`
	WcStatus struct {
		Item      string     `xml:"item,attr"`
		Props     string     `xml:"props,attr"`
		Revision  string     `xml:"revision,attr"`
		WcLocked  string     `xml:"wc-locked,attr"`
		Switched  string     `xml:"switched,attr"`
		MovedFrom string     `xml:"moved-from,attr"`
		MovedTo   string     `xml:"moved-to,attr"`
		Commit    *commitXML `xml:"commit"`
		Lock      *lockXML   `xml:"lock"`
	} `xml:"wc-status"`
	ReposStatus *struct {
		Item  string   `xml:"item,attr"`
		Props string   `xml:"props,attr"`
		Lock  *lockXML `xml:"lock"`
	} `xml:"repos-status"`
}

type infoXML struct {
	XMLName xml.Name       `xml:"info"`
	Entries []infoEntryXML `xml:"entry"`
}

type infoEntryXML struct {
	Path        string `xml:"path,attr"`
	Kind        string `xml:"kind,attr"`
	Revision    string `xml:"revision,attr"`
	URL         string `xml:"url"`
	RelativeURL string `xml:"relative-url"`
	Repository  struct {
		Root string `xml:"root"`
		UUID string `xml:"uuid"`
	} `xml:"repository"`
	WcInfo struct {
		WcrootAbspath string `xml:"wcroot-abspath"`
		Schedule      string `xml:"schedule"`
		Depth         string `xml:"depth"`
	} `xml:"wc-info"`
	Commit *commitXML `xml:"commit"`
}

type listXML struct {
	XMLName xml.Name `xml:"lists"`
	Lists   []struct {
		Path    string `xml:"path,attr"`
		Entries []struct {
			Kind   string     `xml:"kind,attr"`
			Name   string     `xml:"name"`
			Size   string     `xml:"size"`
			Commit *commitXML `xml:"commit"`
		} `xml:"entry"`
	} `xml:"list"`
}

type logXML struct {
	XMLName xml.Name `xml:"log"`
	Entries []struct {
		Revision string `xml:"revision,attr"`
		Author   string `xml:"author"`
		Date     string `xml:"date"`
		Msg      string `xml:"msg"`
		Paths    []struct {
			Action       string `xml:"action,attr"`
			Kind         string `xml:"kind,attr"`
			PropMods     string `xml:"prop-mods,attr"`
			TextMods     string `xml:"text-mods,attr"`
			CopyFromPath string `xml:"copyfrom-path,attr"`
			CopyFromRev  string `xml:"copyfrom-rev,attr"`
			Path         string `xml:",chardata"`
		} `xml:"paths>path"`
	} `xml:"logentry"`
}

type diffXML struct {
	XMLName xml.Name `xml:"diff"`
	Paths   []struct {
		Item  string `xml:"item,attr"`
		Props string `xml:"props,attr"`
		Kind  string `xml:"kind,attr"`
		Path  string `xml:",chardata"`
	} `xml:"paths>path"`
}

func unmarshal(kind string, data string, v any) error {
	if strings.TrimSpace(data) == "" {
		return &ParseError{Kind: kind, Err: errors.New("empty output")}
	}
	if err := xml.Unmarshal([]byte(data), v); err != nil {
		return &ParseError{Kind: kind, Err: err}
	}
	return nil
}

// ParseStatusXML parses `svn status --xml` output.
// A deleted entry carrying moved-to is dropped: the destination entry
// (added, with moved-from) already represents the rename.
func ParseStatusXML(data string) ([]FileStatus, error) {
	var doc statusXML
	if err := unmarshal("status", data, &doc); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var result []FileStatus
	add := func(entries []statusEntryXML, changelist string) {
		for _, e := range entries {
			fs, ok := convertStatusEntry(e, changelist)
			if !ok || seen[fs.Path] {
				continue
			}
			seen[fs.Path] = true
			result = append(result, fs)
		}
	}
	for _, t := range doc.Targets {
		add(t.Entries, "")
	}
	for _, cl := range doc.Changelists {
		add(cl.Entries, cl.Name)
	}
	if result == nil {
		result = []FileStatus{}
	}
	return result, nil
}

func convertStatusEntry(e statusEntryXML, changelist string) (FileStatus, bool) {
	wc := e.WcStatus
	fs := FileStatus{
		Path:       e.Path,
		Status:     Status(wc.Item),
		Props:      PropStatus(wc.Props),
		Changelist: changelist,
		WcStatus: WcFlags{
			Locked:   parseBool(wc.WcLocked) || (e.ReposStatus != nil && e.ReposStatus.Lock != nil),
			Switched: parseBool(wc.Switched),
		},
	}

	if wc.MovedTo != "" && fs.Status == StatusDeleted {
		return FileStatus{}, false
	}
	if wc.MovedFrom != "" && fs.Status == StatusAdded {
		fs.Rename = wc.MovedFrom
	}
	if wc.Commit != nil {
		fs.Commit = convertCommit(wc.Commit)
	}
	if e.ReposStatus != nil {
		fs.ReposStatus = &RemoteStatus{
			Item:  Status(e.ReposStatus.Item),
			Props: PropStatus(e.ReposStatus.Props),
		}
	}
	return fs, true
}

// ParseInfoXML parses `svn info --xml` output and returns the first entry.
func ParseInfoXML(data string) (*Info, error) {
	entries, err := ParseInfoEntriesXML(data)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &ParseError{Kind: "info", Err: errors.New("no entry element")}
	}
	return &entries[0], nil
}

// ParseInfoEntriesXML parses every entry of `svn info --xml` output.
func ParseInfoEntriesXML(data string) ([]Info, error) {
	var doc infoXML
	if err := unmarshal("info", data, &doc); err != nil {
		return nil, err
	}
	result := make([]Info, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		info := Info{
			Path:           e.Path,
			Kind:           e.Kind,
			Revision:       e.Revision,
			URL:            strings.TrimSpace(e.URL),
			RelativeURL:    strings.TrimSpace(e.RelativeURL),
			RepositoryRoot: strings.TrimSpace(e.Repository.Root),
			RepositoryUUID: strings.TrimSpace(e.Repository.UUID),
			WcRoot:         strings.TrimSpace(e.WcInfo.WcrootAbspath),
			Schedule:       e.WcInfo.Schedule,
			Depth:          e.WcInfo.Depth,
		}
		if e.Commit != nil {
			info.Commit = convertCommit(e.Commit)
		}
		result = append(result, info)
	}
	return result, nil
}

// ParseListXML parses `svn list --xml` output.
func ParseListXML(data string) ([]ListEntry, error) {
	var doc listXML
	if err := unmarshal("list", data, &doc); err != nil {
		return nil, err
	}
	result := []ListEntry{}
	for _, l := range doc.Lists {
		for _, e := range l.Entries {
			entry := ListEntry{Kind: e.Kind, Name: e.Name}
			if e.Size != "" {
				entry.Size, _ = strconv.ParseInt(strings.TrimSpace(e.Size), 10, 64)
			}
			if e.Commit != nil {
				entry.Commit = convertCommit(e.Commit)
			}
			result = append(result, entry)
		}
	}
	return result, nil
}

// ParseLogXML parses `svn log --xml [-v]` output.
func ParseLogXML(data string) ([]LogEntry, error) {
	var doc logXML
	if err := unmarshal("log", data, &doc); err != nil {
		return nil, err
	}
	result := make([]LogEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		entry := LogEntry{
			Revision: e.Revision,
			Author:   e.Author,
			Date:     parseDate(e.Date),
			Message:  e.Msg,
		}
		for _, p := range e.Paths {
			entry.Paths = append(entry.Paths, LogPath{
				Path:         strings.TrimSpace(p.Path),
				Action:       p.Action,
				Kind:         p.Kind,
				PropMods:     parseBool(p.PropMods),
				TextMods:     parseBool(p.TextMods),
				CopyFromPath: p.CopyFromPath,
				CopyFromRev:  p.CopyFromRev,
			})
		}
		result = append(result, entry)
	}
	return result, nil
}

// ParseDiffSummaryXML parses `svn diff --xml --summarize` output.
func ParseDiffSummaryXML(data string) ([]DiffSummaryEntry, error) {
	var doc diffXML
	if err := unmarshal("diff", data, &doc); err != nil {
		return nil, err
	}
	result := make([]DiffSummaryEntry, 0, len(doc.Paths))
	for _, p := range doc.Paths {
		result = append(result, DiffSummaryEntry{
			Path:  strings.TrimSpace(p.Path),
			Item:  Status(p.Item),
			Props: PropStatus(p.Props),
			Kind:  p.Kind,
		})
	}
	return result, nil
}

func convertCommit(c *commitXML) *CommitInfo {
	return &CommitInfo{
		Revision: c.Revision,
		Author:   c.Author,
		Date:     parseDate(c.Date),
	}
}

// parseDate parses svn's RFC 3339 timestamps; missing dates stay zero.
func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}
