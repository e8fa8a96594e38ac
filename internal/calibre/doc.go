// Package calibre drives the calibredb command-line tool.
//
// # Layers
//
//	Runner     builds argv, launches one calibredb process per call and
//	           classifies non-zero exits (Run, Stream)
//	Decoders   RunJSON for --for-machine output, ParseAddedIDs and
//	           ParseIDList for human-readable confirmation lines
//	Client     List, Add, Remove and Search over the two layers above
//
// # Errors
//
// Every failed invocation surfaces as a *Error with one of five kinds. Branch
// with errors.Is against the sentinels, or errors.As to read the details:
//
//	books, err := client.List(ctx, calibre.ListOptions{})
//	switch {
//	case errors.Is(err, calibre.ErrLibraryNotFound):
//	case errors.Is(err, calibre.ErrToolMissing):
//	}
//
// Options that fail local validation return ErrInvalidOptions and never start
// a process.
//
// # Add output
//
// calibredb add has no machine-readable mode. Its ids are read from the
// "Added book ids: 1, 2" line, which calibre has printed unchanged since the
// 2.x series; calibre 3.0 is the oldest version this package is tested against.
//
// # Concurrency
//
// calibredb supports a single running instance per library. Nothing here
// serializes calls; callers sharing a library must do that themselves.
package calibre
