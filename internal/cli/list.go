package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

// ListCommand prints library records.
type ListCommand struct {
	libraryFlags
	Fields string
	SortBy string
	Order  string
	Search string
	Limit  int
	Format string

	library Library
	out     io.Writer
	options calibre.ListOptions
}

func NewListCommand() *ListCommand {
	return &ListCommand{out: os.Stdout}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.libraryFlags.register(fs)

	fs.StringVar(&cmd.Fields, "fields", "title,authors", "Comma-separated fields to show, or \"all\"")
	fs.StringVar(&cmd.SortBy, "sort", "", "Field to sort by (default: id)")
	fs.StringVar(&cmd.Order, "order", "desc", "Sort order: asc or desc")
	fs.StringVar(&cmd.Search, "search", "", "calibre search expression, e.g. 'tag:scifi and author:le guin'")
	fs.IntVar(&cmd.Limit, "limit", 0, "Maximum number of records (0 = all)")
	fs.StringVar(&cmd.Format, "format", FormatText, "Output format: text, json or yaml")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s list [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List books in a calibre library.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s list -fields title,authors,tags -sort title -order asc\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s list -search 'series:\"Dune\"' -format json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(cmd.Format); err != nil {
		return err
	}

	fields, err := calibre.ParseFields(cmd.Fields)
	if err != nil {
		return err
	}
	order, err := calibre.ParseSortOrder(cmd.Order)
	if err != nil {
		return err
	}
	if cmd.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	cmd.options = calibre.ListOptions{
		Fields: fields,
		SortBy: calibre.Field(cmd.SortBy),
		Order:  order,
		Search: cmd.Search,
		Limit:  cmd.Limit,
	}
	if cmd.library == nil {
		cmd.library = cmd.libraryFlags.client()
	}
	return nil
}

func (cmd *ListCommand) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	books, err := cmd.library.List(ctx, cmd.options)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	if cmd.Format == FormatText {
		writeBooksText(cmd.out, books)
		return nil
	}
	return writeStructured(cmd.out, cmd.Format, books)
}
