// Package cli implements the one-shot subcommands of the binary: list, add,
// remove, search and hash-token. Each command parses its own flags with
// ParseFlags and then executes with Run.
package cli
