package calibre

import (
	"fmt"
	"strings"
)

// Field is a column name understood by calibredb list --fields and --sort-by.
type Field string

const (
	FieldAuthorSort   Field = "author_sort"
	FieldAuthors      Field = "authors"
	FieldComments     Field = "comments"
	FieldCover        Field = "cover"
	FieldFormats      Field = "formats"
	FieldID           Field = "id"
	FieldIdentifiers  Field = "identifiers"
	FieldISBN         Field = "isbn"
	FieldLanguages    Field = "languages"
	FieldLastModified Field = "last_modified"
	FieldPubdate      Field = "pubdate"
	FieldPublisher    Field = "publisher"
	FieldRating       Field = "rating"
	FieldSeries       Field = "series"
	FieldSeriesIndex  Field = "series_index"
	FieldSize         Field = "size"
	FieldTags         Field = "tags"
	FieldTemplate     Field = "template"
	FieldTimestamp    Field = "timestamp"
	FieldTitle        Field = "title"
	FieldUUID         Field = "uuid"

	// FieldAll requests every column, custom ones included.
	FieldAll Field = "all"
)

// DefaultFields mirrors calibredb's own default; the id is always returned.
var DefaultFields = []Field{FieldTitle, FieldAuthors}

var knownFields = map[Field]bool{
	FieldAuthorSort: true, FieldAuthors: true, FieldComments: true, FieldCover: true,
	FieldFormats: true, FieldID: true, FieldIdentifiers: true, FieldISBN: true,
	FieldLanguages: true, FieldLastModified: true, FieldPubdate: true, FieldPublisher: true,
	FieldRating: true, FieldSeries: true, FieldSeriesIndex: true, FieldSize: true,
	FieldTags: true, FieldTemplate: true, FieldTimestamp: true, FieldTitle: true,
	FieldUUID: true, FieldAll: true,
}

// IsCustom reports whether the field names a custom column ("*#genre" or "#genre").
func (f Field) IsCustom() bool {
	return strings.HasPrefix(string(f), "*") || strings.HasPrefix(string(f), "#")
}

// Valid reports whether calibredb accepts the field.
func (f Field) Valid() bool {
	return knownFields[f] || (f.IsCustom() && len(strings.TrimLeft(string(f), "*#")) > 0)
}

// ParseFields splits a comma-separated field list, rejecting unknown names.
func ParseFields(s string) ([]Field, error) {
	var fields []Field
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := Field(strings.ToLower(part))
		if !f.Valid() {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidOptions, part)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func joinFields(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
