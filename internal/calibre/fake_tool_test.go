package calibre

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTool is a shell script standing in for calibredb. It records its argv
// one argument per line and replays canned output.
type fakeTool struct {
	Path     string
	argsFile string
}

func newFakeTool(t *testing.T, stdout, stderr string, exitCode int) *fakeTool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake calibredb requires a POSIX shell")
	}

	dir := t.TempDir()
	stdoutFile := filepath.Join(dir, "stdout")
	stderrFile := filepath.Join(dir, "stderr")
	argsFile := filepath.Join(dir, "args")
	require.NoError(t, os.WriteFile(stdoutFile, []byte(stdout), 0644))
	require.NoError(t, os.WriteFile(stderrFile, []byte(stderr), 0644))

	script := fmt.Sprintf(`#!/bin/sh
: > %[1]q
for a in "$@"; do printf '%%s\n' "$a" >> %[1]q; done
cat %[2]q
cat %[3]q >&2
exit %[4]d
`, argsFile, stdoutFile, stderrFile, exitCode)

	path := filepath.Join(dir, "calibredb")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	return &fakeTool{Path: path, argsFile: argsFile}
}

// Args returns the argv the last invocation received, without the program name.
func (f *fakeTool) Args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.argsFile)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Invoked reports whether the tool ran at all.
func (f *fakeTool) Invoked() bool {
	_, err := os.Stat(f.argsFile)
	return err == nil
}

func (f *fakeTool) Client(libraryPath string) *Client {
	return NewClient(Config{Executable: f.Path, LibraryPath: libraryPath})
}

type recordingObserver struct {
	invocations []Invocation
}

func (o *recordingObserver) ObserveInvocation(inv Invocation) {
	o.invocations = append(o.invocations, inv)
}
