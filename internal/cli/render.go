package cli

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

// commentsToMarkdown converts the HTML calibre stores in the comments
// column. Plain text passes through unchanged.
func commentsToMarkdown(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	if !strings.Contains(html, "<") {
		return html
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(markdown)
}

func writeBooksText(w io.Writer, books []calibre.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found")
		return
	}

	for i, book := range books {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := book.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "[%d] %s\n", book.ID, title)

		if authors := book.AuthorList(); len(authors) > 0 {
			fmt.Fprintf(w, "    by %s\n", strings.Join(authors, ", "))
		}
		if book.Series != "" {
			if book.SeriesIndex != nil {
				fmt.Fprintf(w, "    series: %s #%g\n", book.Series, *book.SeriesIndex)
			} else {
				fmt.Fprintf(w, "    series: %s\n", book.Series)
			}
		}
		if len(book.Tags) > 0 {
			fmt.Fprintf(w, "    tags: %s\n", strings.Join(book.Tags, ", "))
		}
		if book.Publisher != "" {
			fmt.Fprintf(w, "    publisher: %s\n", book.Publisher)
		}
		if len(book.Formats) > 0 {
			fmt.Fprintf(w, "    formats: %s\n", strings.Join(book.Formats, ", "))
		}
		if comments := commentsToMarkdown(book.Comments); comments != "" {
			fmt.Fprintln(w)
			for _, line := range strings.Split(comments, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}

func writeIDsText(w io.Writer, ids []int) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	fmt.Fprintln(w, strings.Join(parts, ","))
}
