package calibre

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddedIDs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"single id", "Added book ids: 7\n", []int{7}},
		{"several ids", "Backing up metadata\nAdded book ids: 4, 5, 6\n", []int{4, 5, 6}},
		{"singular label", "Added book id: 12", []int{12}},
		{"case insensitive", "added BOOK IDS: 1,2", []int{1, 2}},
		{"does not run onto the next line", "Added book ids: 3\n99 files scanned", []int{3}},
		{
			name: "all duplicates",
			text: "The following books were not added as they already exist in the database (see --duplicates option):\n  Dune\n",
			want: []int{},
		},
		{"empty output", "", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAddedIDs(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []int{1, 5, 9}, ParseIDList("1,5,9"))
	assert.Equal(t, []int{1, 5, 9}, ParseIDList("1, 5, 9\n"))
	assert.Equal(t, []int{3}, ParseIDList("3"))
	assert.Equal(t, []int{}, ParseIDList(""))
	assert.Equal(t, []int{}, ParseIDList("nothing here"))
}

func TestRunJSON_ForcesMachineReadable(t *testing.T) {
	tool := newFakeTool(t, `[{"id": 1, "title": "Dune"}]`, "", 0)
	r := NewRunner(Config{Executable: tool.Path})

	books, err := RunJSON[[]Book](context.Background(), r, "list", []string{"--fields", "title"})
	require.NoError(t, err)

	assert.Equal(t, []string{"list", "--for-machine", "--fields", "title"}, tool.Args(t))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestRunJSON_DecodeFailureKeepsRawText(t *testing.T) {
	inputs := []string{
		`[{"id": 1, "title": `,
		"Some human readable text",
		"",
		"null\n",
		`{"id": "not-a-number"}`,
	}

	for _, raw := range inputs {
		tool := newFakeTool(t, raw, "", 0)
		r := NewRunner(Config{Executable: tool.Path})

		_, err := RunJSON[[]Book](context.Background(), r, "list", nil)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrDecode), raw)

		var cerr *Error
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, raw, cerr.Output)
		assert.Equal(t, "list", cerr.Command)
	}
}

func TestRunJSON_PropagatesProcessFailure(t *testing.T) {
	tool := newFakeTool(t, "[]", "library not found", 1)
	r := NewRunner(Config{Executable: tool.Path})

	_, err := RunJSON[[]Book](context.Background(), r, "list", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLibraryNotFound))
	assert.False(t, errors.Is(err, ErrDecode))
}

func TestBook_DecodeFullRecord(t *testing.T) {
	raw := `{
		"id": 3,
		"title": "The Left Hand of Darkness",
		"authors": "Ursula K. Le Guin & Someone Else",
		"tags": ["scifi", "classic"],
		"series": "Hainish Cycle",
		"series_index": 4.0,
		"identifiers": {"isbn": "9780441478125", "goodreads": "18423"},
		"formats": ["/lib/a.epub"],
		"languages": ["eng"],
		"rating": 10.0,
		"size": 12345,
		"*#genre": "Science Fiction",
		"*#read": true
	}`

	var book Book
	require.NoError(t, json.Unmarshal([]byte(raw), &book))

	assert.Equal(t, 3, book.ID)
	assert.Equal(t, []string{"Ursula K. Le Guin", "Someone Else"}, book.AuthorList())
	assert.ElementsMatch(t, []string{"classic", "scifi"}, book.Tags)
	assert.Equal(t, "Hainish Cycle", book.Series)
	require.NotNil(t, book.SeriesIndex)
	assert.Equal(t, 4.0, *book.SeriesIndex)
	assert.Equal(t, map[string]string{"isbn": "9780441478125", "goodreads": "18423"}, book.Identifiers)
	assert.Equal(t, int64(12345), book.Size)
	require.Len(t, book.Extra, 2)
	assert.JSONEq(t, `"Science Fiction"`, string(book.Extra["*#genre"]))

	out, err := json.Marshal(book)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"*#genre":"Science Fiction"`)
	assert.Contains(t, string(out), `"title":"The Left Hand of Darkness"`)
}

func TestBook_AuthorListEmpty(t *testing.T) {
	assert.Nil(t, Book{}.AuthorList())
	assert.Equal(t, []string{"Solo"}, Book{Authors: "Solo"}.AuthorList())
}
