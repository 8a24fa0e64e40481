package svn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrorCode is the machine-readable "E<number>" code svn prints on failure.
type ErrorCode string

// Known error codes.
const (
	CodeNone                   ErrorCode = ""
	CodeAuthorizationFailed    ErrorCode = "E170001"
	CodeRepositoryIsLocked     ErrorCode = "E155004"
	CodeNotASvnRepository      ErrorCode = "E155007"
	CodeNotShareCommonAncestry ErrorCode = "E195012"
	CodeWorkingCopyIsTooOld    ErrorCode = "E155036"
)

// authCodes are reported by svn when credentials are missing or rejected.
var authCodes = []string{"E170001", "E215004"}

var (
	// ErrSvnNotFound is returned when the svn executable cannot be launched.
	ErrSvnNotFound = errors.New("svn executable not found")
	// ErrLocalPathNotSupported is returned when a local path is parsed without a checkout.
	ErrLocalPathNotSupported = errors.New("local path not supported")
	// ErrInvalidRevision is returned for revisions svn would not accept.
	ErrInvalidRevision = errors.New("invalid revision")
)

var (
	codePattern      = regexp.MustCompile(`svn: (E\d{6})`)
	stderrPrefix     = regexp.MustCompile(`(?m)^svn: E\d+: *`)
	noMoreCredential = regexp.MustCompile(`No more credentials or we tried too many times`)
)

// Error is a failed svn invocation.
type Error struct {
	Args     []string
	ExitCode int
	Code     ErrorCode
	Stdout   string
	Stderr   string
	Err      error // launch/context error, nil for plain non-zero exits
}

func (e *Error) Error() string {
	msg := e.FormattedStderr()
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = fmt.Sprintf("exit code %d", e.ExitCode)
	}
	cmd := "svn"
	if len(e.Args) > 0 {
		cmd = "svn " + e.Args[0]
	}
	return fmt.Sprintf("%s failed: %s", cmd, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FormattedStderr returns stderr with svn's "svn: E<code>:" prefixes stripped.
func (e *Error) FormattedStderr() string {
	return FormatStderr(e.Stderr)
}

// FormatStderr strips svn's "svn: E<code>:" line prefixes.
func FormatStderr(stderr string) string {
	return strings.TrimSpace(stderrPrefix.ReplaceAllString(stderr, ""))
}

// DetectErrorCode extracts the most relevant error code from stderr.
// Authorization problems win over anything else svn prints alongside them.
func DetectErrorCode(stderr string) ErrorCode {
	if noMoreCredential.MatchString(stderr) {
		return CodeAuthorizationFailed
	}
	matches := codePattern.FindAllStringSubmatch(stderr, -1)
	for _, m := range matches {
		for _, auth := range authCodes {
			if m[1] == auth {
				return CodeAuthorizationFailed
			}
		}
	}
	for _, m := range matches {
		switch code := ErrorCode(m[1]); code {
		case CodeRepositoryIsLocked, CodeNotASvnRepository, CodeNotShareCommonAncestry, CodeWorkingCopyIsTooOld:
			return code
		}
	}
	if len(matches) > 0 {
		return ErrorCode(matches[0][1])
	}
	return CodeNone
}

// CodeOf returns the svn error code carried by err, or CodeNone.
func CodeOf(err error) ErrorCode {
	var svnErr *Error
	if errors.As(err, &svnErr) {
		return svnErr.Code
	}
	return CodeNone
}

// IsLocked reports whether err is the transient working-copy lock error.
func IsLocked(err error) bool { return CodeOf(err) == CodeRepositoryIsLocked }

// IsAuthFailure reports whether err is an authorization failure.
func IsAuthFailure(err error) bool { return CodeOf(err) == CodeAuthorizationFailed }

// IsNotWorkingCopy reports whether err says the path is no longer a working copy.
func IsNotWorkingCopy(err error) bool { return CodeOf(err) == CodeNotASvnRepository }

// ParseError is returned when svn output cannot be decoded.
type ParseError struct {
	Kind string // "status", "info", ...
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse svn %s output: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
