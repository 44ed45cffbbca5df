package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Joseph-Rai/translationapis/internal/auth"
)

func main() {
	var description string

	cmd := &cobra.Command{
		Use:   "keygen [api-key]",
		Short: "Hash an API key for server.api_keys",
		Long: `keygen prints the SHA-256 hash of an API key in the form expected by
server.api_keys in config.yaml. Without an argument a random key is generated.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := ""
			if len(args) == 1 {
				apiKey = args[0]
			} else {
				generated, err := generateKey()
				if err != nil {
					return err
				}
				apiKey = generated
			}
			return printKey(cmd.OutOrStdout(), apiKey, description)
		},
	}
	cmd.Flags().StringVar(&description, "description", "Generated key", "description stored next to the hash")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return "tapi-" + hex.EncodeToString(b), nil
}

func printKey(w io.Writer, apiKey, description string) error {
	keyHash := auth.HashAPIKey(apiKey)
	_, err := fmt.Fprintf(w, `API Key: %s
SHA-256 Hash: %s

Add this to your config.yaml:
server:
  api_keys:
    - key_hash: %q
      description: %q
`, apiKey, keyHash, keyHash, description)
	return err
}
