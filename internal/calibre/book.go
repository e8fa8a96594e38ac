package calibre

import (
	"encoding/json"
	"strings"
)

// authorSeparator joins multiple authors in calibredb's authors field.
const authorSeparator = " & "

// Book is one library record as projected by the requested fields.
// Only ID is guaranteed; everything else depends on the field selection.
type Book struct {
	ID           int               `json:"id" yaml:"id"`
	Title        string            `json:"title,omitempty" yaml:"title,omitempty"`
	Authors      string            `json:"authors,omitempty" yaml:"authors,omitempty"`
	AuthorSort   string            `json:"author_sort,omitempty" yaml:"author_sort,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Series       string            `json:"series,omitempty" yaml:"series,omitempty"`
	SeriesIndex  *float64          `json:"series_index,omitempty" yaml:"series_index,omitempty"`
	Identifiers  map[string]string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	ISBN         string            `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Formats      []string          `json:"formats,omitempty" yaml:"formats,omitempty"`
	Publisher    string            `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Languages    []string          `json:"languages,omitempty" yaml:"languages,omitempty"`
	Rating       *float64          `json:"rating,omitempty" yaml:"rating,omitempty"`
	Comments     string            `json:"comments,omitempty" yaml:"comments,omitempty"`
	Pubdate      string            `json:"pubdate,omitempty" yaml:"pubdate,omitempty"`
	Timestamp    string            `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	LastModified string            `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	Size         int64             `json:"size,omitempty" yaml:"size,omitempty"`
	UUID         string            `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Cover        string            `json:"cover,omitempty" yaml:"cover,omitempty"`

	// Extra holds custom columns, keyed as calibredb reports them ("*#genre").
	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// AuthorList splits the joined authors string.
func (b Book) AuthorList() []string {
	if strings.TrimSpace(b.Authors) == "" {
		return nil
	}
	parts := strings.Split(b.Authors, authorSeparator)
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if !strings.HasPrefix(key, "*") {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}

	*b = Book(p)
	return nil
}

func (b Book) MarshalJSON() ([]byte, error) {
	type plain Book
	data, err := json.Marshal(plain(b))
	if err != nil || len(b.Extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range b.Extra {
		merged[key] = value
	}
	return json.Marshal(merged)
}
