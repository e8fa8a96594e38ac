package calibre

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SortOrder is the direction of a list sort.
type SortOrder string

const (
	SortDescending SortOrder = "desc" // calibredb default
	SortAscending  SortOrder = "asc"
)

// ParseSortOrder accepts "asc"/"ascending" and "desc"/"descending"; empty means descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return SortDescending, nil
	case "asc", "ascending":
		return SortAscending, nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidOptions, s)
	}
}

// ListOptions selects, filters and orders the records returned by List.
type ListOptions struct {
	// Fields to return. Empty means DefaultFields.
	Fields []Field
	// SortBy is a field name; empty leaves calibredb's default (id).
	SortBy Field
	Order  SortOrder
	// Search is passed verbatim as calibredb's search expression.
	Search string
	// Limit caps the number of records; 0 means no limit.
	Limit int
}

func (o ListOptions) args() ([]string, error) {
	fields := o.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	for _, f := range fields {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidOptions, f)
		}
	}
	if o.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrInvalidOptions, o.Limit)
	}

	args := []string{"--fields", joinFields(fields)}
	if o.SortBy != "" {
		if !o.SortBy.Valid() || o.SortBy == FieldAll {
			return nil, fmt.Errorf("%w: cannot sort by %q", ErrInvalidOptions, o.SortBy)
		}
		args = append(args, "--sort-by", string(o.SortBy))
	}
	if o.Order == SortAscending {
		args = append(args, "--ascending")
	}
	if o.Search != "" {
		args = append(args, "--search", o.Search)
	}
	if o.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(o.Limit))
	}
	return args, nil
}

// DuplicateMode controls how add treats books already in the library.
type DuplicateMode string

const (
	// DuplicatesReject skips files whose title and author match an existing book.
	DuplicatesReject DuplicateMode = ""
	// DuplicatesAllow adds every file as a new record.
	DuplicatesAllow DuplicateMode = "allow"
	// The merge modes fold new formats into the matching record.
	DuplicatesMergeIgnore    DuplicateMode = "ignore"
	DuplicatesMergeOverwrite DuplicateMode = "overwrite"
	DuplicatesMergeNewRecord DuplicateMode = "new_record"
)

// ParseDuplicateMode parses the names used in configuration and flags.
func ParseDuplicateMode(s string) (DuplicateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject", "skip":
		return DuplicatesReject, nil
	case "allow":
		return DuplicatesAllow, nil
	case "ignore":
		return DuplicatesMergeIgnore, nil
	case "overwrite":
		return DuplicatesMergeOverwrite, nil
	case "new_record":
		return DuplicatesMergeNewRecord, nil
	default:
		return "", fmt.Errorf("%w: unknown duplicate mode %q", ErrInvalidOptions, s)
	}
}

// AddOptions carries metadata and duplicate handling for add.
type AddOptions struct {
	Duplicates DuplicateMode `json:"duplicates,omitempty"`

	// Empty creates a record with no file; Title is then required.
	Empty bool `json:"empty,omitempty"`

	Title       string            `json:"title,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Series      string            `json:"series,omitempty"`
	SeriesIndex *float64          `json:"series_index,omitempty"`
	ISBN        string            `json:"isbn,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Languages   []string          `json:"languages,omitempty"`
	Cover       string            `json:"cover,omitempty"`

	OneBookPerDirectory bool `json:"one_book_per_directory,omitempty"`
	Recurse             bool `json:"recurse,omitempty"`
}

// Validate checks the local preconditions of an add call.
func (o AddOptions) Validate(paths []string) error {
	if _, err := ParseDuplicateMode(string(o.Duplicates)); err != nil {
		return err
	}
	for key := range o.Identifiers {
		if key == "" || strings.Contains(key, ":") {
			return fmt.Errorf("%w: invalid identifier type %q", ErrInvalidOptions, key)
		}
	}

	if o.Empty {
		if len(paths) > 0 {
			return fmt.Errorf("%w: files cannot be given for an empty-record addition", ErrInvalidOptions)
		}
		if strings.TrimSpace(o.Title) == "" {
			return fmt.Errorf("%w: title is required for an empty-record addition", ErrInvalidOptions)
		}
		return nil
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: no files to add", ErrInvalidOptions)
	}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty file path", ErrInvalidOptions)
		}
	}
	return nil
}

func (o AddOptions) args(paths []string) []string {
	var args []string

	// Validate has already rejected unknown modes.
	mode, _ := ParseDuplicateMode(string(o.Duplicates))
	switch mode {
	case DuplicatesAllow:
		args = append(args, "--duplicates")
	case DuplicatesMergeIgnore, DuplicatesMergeOverwrite, DuplicatesMergeNewRecord:
		args = append(args, "--automerge", string(mode))
	}
	if o.Empty {
		args = append(args, "--empty")
	}
	if o.Title != "" {
		args = append(args, "--title", o.Title)
	}
	if len(o.Authors) > 0 {
		args = append(args, "--authors", strings.Join(o.Authors, authorSeparator))
	}
	if len(o.Tags) > 0 {
		args = append(args, "--tags", strings.Join(o.Tags, ","))
	}
	if o.Series != "" {
		args = append(args, "--series", o.Series)
	}
	if o.SeriesIndex != nil {
		args = append(args, "--series-index", strconv.FormatFloat(*o.SeriesIndex, 'f', -1, 64))
	}
	if o.ISBN != "" {
		args = append(args, "--isbn", o.ISBN)
	}
	if len(o.Identifiers) > 0 {
		keys := make([]string, 0, len(o.Identifiers))
		for k := range o.Identifiers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, "--identifier", k+":"+o.Identifiers[k])
		}
	}
	if len(o.Languages) > 0 {
		args = append(args, "--languages", strings.Join(o.Languages, ","))
	}
	if o.Cover != "" {
		args = append(args, "--cover", o.Cover)
	}
	if o.OneBookPerDirectory {
		args = append(args, "--one-book-per-directory")
	}
	if o.Recurse {
		args = append(args, "--recurse")
	}

	for _, p := range paths {
		if strings.HasPrefix(p, "-") {
			args = append(args, "--")
			break
		}
	}
	return append(args, paths...)
}
