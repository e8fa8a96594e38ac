package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/calibre-bridge/internal/auth"
)

// HashTokenCommand produces the API_TOKEN_HASH value for serve.
type HashTokenCommand struct {
	Token string
	Cost  int

	out io.Writer
}

func NewHashTokenCommand() *HashTokenCommand {
	return &HashTokenCommand{out: os.Stdout}
}

func (cmd *HashTokenCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)

	fs.StringVar(&cmd.Token, "token", "", "Token to hash (default: generate a random one)")
	fs.IntVar(&cmd.Cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s hash-token [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print a bcrypt hash for API_TOKEN_HASH. Clients send the token as\n")
		fmt.Fprintf(os.Stderr, "'Authorization: Bearer <token>'.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Cost < bcrypt.MinCost || cmd.Cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func (cmd *HashTokenCommand) Run() error {
	generated := false
	if cmd.Token == "" {
		token, err := auth.GenerateToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		cmd.Token = token
		generated = true
	}

	hash, err := auth.HashToken(cmd.Token, cmd.Cost)
	if err != nil {
		return err
	}

	if generated {
		fmt.Fprintf(cmd.out, "Token: %s\n", cmd.Token)
	}
	fmt.Fprintf(cmd.out, "API_TOKEN_HASH=%s\n", hash)
	return nil
}
