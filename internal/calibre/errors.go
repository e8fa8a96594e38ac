package calibre

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"regexp"
	"strings"
)

// ErrorKind identifies which failure a calibredb invocation resolved to.
type ErrorKind string

const (
	KindCommandFailed   ErrorKind = "command_failed"
	KindNotFound        ErrorKind = "not_found"
	KindLibraryNotFound ErrorKind = "library_not_found"
	KindToolMissing     ErrorKind = "tool_missing"
	KindDecode          ErrorKind = "decode_failed"
)

var (
	ErrCommandFailed   = errors.New("calibredb command failed")
	ErrNotFound        = errors.New("book not found")
	ErrLibraryNotFound = errors.New("calibre library not found")
	ErrToolMissing     = errors.New("calibredb executable not found")
	ErrDecode          = errors.New("failed to decode calibredb output")

	// ErrInvalidOptions is returned by adapters before any process is started.
	ErrInvalidOptions = errors.New("invalid calibredb options")
)

// UnknownDetail is substituted when a detail cannot be extracted from the error text.
const UnknownDetail = "unknown"

// noOutputPlaceholder is the classified text when the process wrote nothing at all.
const noOutputPlaceholder = "no output"

// Error is a classified calibredb failure. Output always carries the raw text
// the classification was made from.
type Error struct {
	Kind        ErrorKind
	Command     string
	Output      string
	BookID      string // KindNotFound only
	LibraryPath string // KindLibraryNotFound only
	Err         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("calibredb %s: book %s not found", e.Command, e.BookID)
	case KindLibraryNotFound:
		return fmt.Sprintf("calibredb %s: library %s not found", e.Command, e.LibraryPath)
	case KindToolMissing:
		if e.Err != nil {
			return fmt.Sprintf("calibredb executable not found: %v", e.Err)
		}
		return "calibredb executable not found"
	case KindDecode:
		return fmt.Sprintf("calibredb %s: failed to decode output: %v", e.Command, e.Err)
	default:
		return fmt.Sprintf("calibredb %s failed: %s", e.Command, firstLine(e.Output))
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can branch with errors.Is.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindLibraryNotFound:
		return ErrLibraryNotFound
	case KindToolMissing:
		return ErrToolMissing
	case KindDecode:
		return ErrDecode
	default:
		return ErrCommandFailed
	}
}

// KindOf returns the kind of a classified error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// Phrases are matched lowercase, in this group order.
var (
	bookNotFoundPhrases = []string{
		"no book with id",
		"no such book",
		"book not found",
		"record not found",
		"no books matching",
	}
	libraryNotFoundPhrases = []string{
		"library not found",
		"no such library",
		"not a calibre library",
		"unable to open library",
		"library does not exist",
	}
	toolMissingPhrases = []string{
		"executable file not found",
		"command not found",
		"no such file or directory",
	}
)

var (
	bookIDPattern     = regexp.MustCompile(`(?i)\bids?\b\s*[:#=]?\s*(\d+)`)
	quotedPathPattern = regexp.MustCompile(`["']([^"']*[/\\][^"']*)["']`)
	barePathPattern   = regexp.MustCompile(`(?:[A-Za-z]:)?[/\\][^\s"',:;]+`)
)

// Classify maps a failed invocation onto exactly one Error kind. It never fails.
func Classify(err error, command, output string) *Error {
	if output == "" {
		output = noOutputPlaceholder
	}
	lower := strings.ToLower(output)

	switch {
	case containsAny(lower, bookNotFoundPhrases):
		return &Error{
			Kind:    KindNotFound,
			Command: command,
			Output:  output,
			BookID:  extractBookID(output),
			Err:     err,
		}
	case containsAny(lower, libraryNotFoundPhrases):
		return &Error{
			Kind:        KindLibraryNotFound,
			Command:     command,
			Output:      output,
			LibraryPath: extractPath(output),
			Err:         err,
		}
	case isToolMissing(err, lower):
		return &Error{Kind: KindToolMissing, Command: command, Output: output, Err: err}
	default:
		return &Error{Kind: KindCommandFailed, Command: command, Output: output, Err: err}
	}
}

func newDecodeError(command, raw string, err error) *Error {
	return &Error{Kind: KindDecode, Command: command, Output: raw, Err: err}
}

// isToolMissing only trusts the phrases when calibredb never ran. Once the
// process exited on its own, "no such file" refers to its inputs; a wrapping
// shell reports an absent binary with exit status 127.
func isToolMissing(err error, lowerOutput string) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 127 && strings.Contains(lowerOutput, "command not found")
	}
	return isMissingExecutable(err) || containsAny(lowerOutput, toolMissingPhrases)
}

func isMissingExecutable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func extractBookID(text string) string {
	if m := bookIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return UnknownDetail
}

func extractPath(text string) string {
	if m := quotedPathPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := barePathPattern.FindString(text); m != "" {
		return m
	}
	return UnknownDetail
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
