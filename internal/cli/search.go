package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// SearchCommand prints the ids matching a calibre search expression.
type SearchCommand struct {
	libraryFlags
	Expression string
	Limit      int
	Format     string

	library Library
	out     io.Writer
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{out: os.Stdout}
}

func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	cmd.libraryFlags.register(fs)

	fs.IntVar(&cmd.Limit, "limit", 0, "Maximum number of ids (0 = all)")
	fs.StringVar(&cmd.Format, "format", FormatText, "Output format: text, json or yaml")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search [options] <expression>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the ids of books matching a calibre search expression.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(cmd.Format); err != nil {
		return err
	}

	cmd.Expression = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if cmd.Expression == "" {
		fs.Usage()
		return fmt.Errorf("search expression is required")
	}
	if cmd.library == nil {
		cmd.library = cmd.libraryFlags.client()
	}
	return nil
}

func (cmd *SearchCommand) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	ids, err := cmd.library.Search(ctx, cmd.Expression, cmd.Limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Format == FormatText {
		if len(ids) == 0 {
			fmt.Fprintln(cmd.out, "No matching books")
			return nil
		}
		writeIDsText(cmd.out, ids)
		return nil
	}
	return writeStructured(cmd.out, cmd.Format, map[string]any{"ids": ids, "count": len(ids)})
}
