package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
)

type streamAdder interface {
	AddStream(ctx context.Context, paths []string, opts calibre.AddOptions) (*calibre.Stream, error)
}

// AddCommand imports e-book files into the library.
type AddCommand struct {
	libraryFlags
	Paths    []string
	Options  calibre.AddOptions
	Progress bool
	Format   string

	library  Library
	out      io.Writer
	progress io.Writer
}

func NewAddCommand() *AddCommand {
	return &AddCommand{out: os.Stdout, progress: os.Stderr}
}

func (cmd *AddCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	cmd.libraryFlags.register(fs)

	var (
		duplicates  string
		authors     string
		tags        string
		languages   string
		seriesIndex string
	)
	identifiers := map[string]string{}

	fs.StringVar(&duplicates, "duplicates", "reject", "Duplicate handling: reject, allow, ignore, overwrite or new_record")
	fs.BoolVar(&cmd.Options.Empty, "empty", false, "Create an empty record with no file (requires -title)")
	fs.StringVar(&cmd.Options.Title, "title", "", "Title metadata")
	fs.StringVar(&authors, "authors", "", "Comma-separated authors")
	fs.StringVar(&tags, "tags", "", "Comma-separated tags")
	fs.StringVar(&cmd.Options.Series, "series", "", "Series name")
	fs.StringVar(&seriesIndex, "series-index", "", "Position in the series, e.g. 2 or 1.5")
	fs.StringVar(&cmd.Options.ISBN, "isbn", "", "ISBN")
	fs.StringVar(&languages, "languages", "", "Comma-separated language codes")
	fs.StringVar(&cmd.Options.Cover, "cover", "", "Path to a cover image")
	fs.Func("identifier", "Identifier as type:value (repeatable)", func(s string) error {
		key, value, ok := strings.Cut(s, ":")
		if !ok || key == "" || value == "" {
			return fmt.Errorf("identifier must be type:value, got %q", s)
		}
		identifiers[key] = value
		return nil
	})
	fs.BoolVar(&cmd.Options.Recurse, "recurse", false, "Add books found in directories recursively")
	fs.BoolVar(&cmd.Options.OneBookPerDirectory, "one-book-per-directory", false, "Treat each directory as one book in several formats")
	fs.BoolVar(&cmd.Progress, "progress", false, "Stream calibredb output while importing")
	fs.StringVar(&cmd.Format, "format", FormatText, "Output format: text, json or yaml")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s add [options] <file>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Add e-book files to a calibre library and print the new book ids.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s add ~/Downloads/dune.epub\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s add -tags scifi,classic -duplicates overwrite *.epub\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s add -empty -title \"Wishlist: Hyperion\" -authors \"Dan Simmons\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(cmd.Format); err != nil {
		return err
	}

	mode, err := calibre.ParseDuplicateMode(duplicates)
	if err != nil {
		return err
	}
	cmd.Options.Duplicates = mode
	cmd.Options.Authors = splitList(authors)
	cmd.Options.Tags = splitList(tags)
	cmd.Options.Languages = splitList(languages)
	if len(identifiers) > 0 {
		cmd.Options.Identifiers = identifiers
	}
	if seriesIndex != "" {
		index, err := strconv.ParseFloat(seriesIndex, 64)
		if err != nil {
			return fmt.Errorf("invalid series index %q", seriesIndex)
		}
		cmd.Options.SeriesIndex = &index
	}

	cmd.Paths = fs.Args()
	if err := cmd.Options.Validate(cmd.Paths); err != nil {
		return err
	}

	if cmd.library == nil {
		cmd.library = cmd.libraryFlags.client()
	}
	return nil
}

func (cmd *AddCommand) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	var (
		ids []int
		err error
	)
	if adder, ok := cmd.library.(streamAdder); ok && cmd.Progress {
		ids, err = cmd.addStreaming(ctx, adder)
	} else {
		ids, err = cmd.library.Add(ctx, cmd.Paths, cmd.Options)
	}
	if err != nil {
		return fmt.Errorf("failed to add books: %w", err)
	}

	if cmd.Format == FormatText {
		if len(ids) == 0 {
			fmt.Fprintln(cmd.out, "No books added (all duplicates)")
			return nil
		}
		writeIDsText(cmd.out, ids)
		return nil
	}
	return writeStructured(cmd.out, cmd.Format, map[string]any{"ids": ids, "count": len(ids)})
}

// maxProgressLine bounds a single echoed line of calibredb output.
const maxProgressLine = 1024 * 1024

// addStreaming echoes calibredb's output as it arrives and reads the ids
// from the collected stdout once the process exits.
func (cmd *AddCommand) addStreaming(ctx context.Context, adder streamAdder) ([]int, error) {
	stream, err := adder.AddStream(ctx, cmd.Paths, cmd.Options)
	if err != nil {
		return nil, err
	}

	var (
		stdout strings.Builder
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	echo := func(r io.Reader, collect bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxProgressLine)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			fmt.Fprintln(cmd.progress, line)
			if collect {
				stdout.WriteString(line)
				stdout.WriteString("\n")
			}
			mu.Unlock()
		}
		// calibredb blocks on a full pipe, so keep reading past an oversized line.
		if scanner.Err() != nil {
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go echo(stream.Stdout, true)
	go echo(stream.Stderr, false)
	wg.Wait()

	if err := stream.Wait(); err != nil {
		return nil, err
	}
	return calibre.ParseAddedIDs(stdout.String()), nil
}
