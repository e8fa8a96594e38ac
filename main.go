package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mrlokans/calibre-bridge/internal/cli"
	"github.com/mrlokans/calibre-bridge/internal/config"
	"github.com/mrlokans/calibre-bridge/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "list":
		cmd = cli.NewListCommand()
	case "add":
		cmd = cli.NewAddCommand()
	case "remove":
		cmd = cli.NewRemoveCommand()
	case "search":
		cmd = cli.NewSearchCommand()
	case "hash-token":
		cmd = cli.NewHashTokenCommand()
	case "version":
		fmt.Printf("calibre-bridge %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  list         List books in the library\n")
	fmt.Fprintf(os.Stderr, "  add          Add e-book files to the library\n")
	fmt.Fprintf(os.Stderr, "  remove       Remove books by id\n")
	fmt.Fprintf(os.Stderr, "  search       Print ids matching a calibre search expression\n")
	fmt.Fprintf(os.Stderr, "  hash-token   Generate an API_TOKEN_HASH for bearer authentication\n")
	fmt.Fprintf(os.Stderr, "  version      Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Settings are read from the environment and from a .env file in the working directory.\n")
}
