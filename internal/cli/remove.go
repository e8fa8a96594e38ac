package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// RemoveCommand deletes records by id.
type RemoveCommand struct {
	libraryFlags
	IDs       []int
	Permanent bool

	library Library
	out     io.Writer
}

func NewRemoveCommand() *RemoveCommand {
	return &RemoveCommand{out: os.Stdout}
}

func (cmd *RemoveCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	cmd.libraryFlags.register(fs)

	var ids string
	fs.StringVar(&ids, "ids", "", "Comma-separated book ids (ids may also be given as arguments)")
	fs.BoolVar(&cmd.Permanent, "permanent", false, "Skip the calibre trash bin")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s remove [options] <id>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Remove books from a calibre library. Ids that do not exist are ignored.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s remove 12 13\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s remove -ids 12,13 -permanent\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := parseIDs(append([]string{ids}, fs.Args()...)...)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		fs.Usage()
		return fmt.Errorf("at least one book id is required")
	}
	cmd.IDs = parsed

	if cmd.library == nil {
		cmd.library = cmd.libraryFlags.client()
	}
	return nil
}

func (cmd *RemoveCommand) Run() error {
	ctx, cancel := signalContext()
	defer cancel()

	if err := cmd.library.Remove(ctx, cmd.IDs, cmd.Permanent); err != nil {
		return fmt.Errorf("failed to remove books: %w", err)
	}

	fmt.Fprintf(cmd.out, "Removed %d book(s)", len(cmd.IDs))
	if cmd.Permanent {
		fmt.Fprint(cmd.out, " permanently")
	}
	fmt.Fprintln(cmd.out)
	return nil
}
