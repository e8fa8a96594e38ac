package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/calibre-bridge/internal/calibre"
	"github.com/mrlokans/calibre-bridge/internal/config"
)

// Library is the calibredb surface the commands drive.
type Library interface {
	List(ctx context.Context, opts calibre.ListOptions) ([]calibre.Book, error)
	Add(ctx context.Context, paths []string, opts calibre.AddOptions) ([]int, error)
	Remove(ctx context.Context, ids []int, permanent bool) error
	Search(ctx context.Context, expression string, limit int) ([]int, error)
}

// Output formats accepted by -format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// libraryFlags are shared by every command that talks to calibredb.
// Defaults come from the environment, so CALIBRE_LIBRARY_PATH and
// CALIBREDB_EXECUTABLE apply to the CLI as well as to serve.
type libraryFlags struct {
	LibraryPath string
	Executable  string
}

func (f *libraryFlags) register(fs *flag.FlagSet) {
	cfg := config.NewConfig()
	fs.StringVar(&f.LibraryPath, "library", cfg.Calibre.LibraryPath, "Path to the calibre library (default: calibredb's own default)")
	fs.StringVar(&f.Executable, "calibredb", cfg.Calibre.Executable, "calibredb binary name or path")
}

func (f *libraryFlags) client() *calibre.Client {
	cfg := calibre.NewConfig()
	if f.Executable != "" {
		cfg.Executable = f.Executable
	}
	cfg.LibraryPath = f.LibraryPath
	return calibre.NewClient(cfg)
}

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// writeStructured renders v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// parseIDs accepts ids separated by commas or whitespace.
func parseIDs(values ...string) ([]int, error) {
	var ids []int
	for _, value := range values {
		for _, part := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid book id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// signalContext is cancelled on SIGINT or SIGTERM, which kills a running calibredb.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
