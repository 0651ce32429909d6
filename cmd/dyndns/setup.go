package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Travis-Britz/dyndns/internal/config"
	"github.com/cloudflare/cloudflare-go"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// tokenVerifier is the part of the Cloudflare API used by setup.
type tokenVerifier interface {
	VerifyAPIToken(ctx context.Context) (cloudflare.APITokenVerifyBody, error)
}

func newSetupCommand(in *os.File, out io.Writer) *cobra.Command {
	var keyFile string
	cmd := &cobra.Command{
		Use:          "setup",
		Short:        "Verify a Cloudflare API token and store it in the key file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFile == "" {
				cfg, err := config.Load("")
				if err != nil {
					return err
				}
				keyFile = cfg.KeyFile
			}

			fmt.Fprintln(out, "Enter Cloudflare API Token:")
			b, err := term.ReadPassword(int(in.Fd()))
			if err != nil {
				return fmt.Errorf("error reading from stdin: %w", err)
			}
			token := strings.TrimSpace(string(b))

			api, err := cloudflare.NewWithAPIToken(token)
			if err != nil {
				return fmt.Errorf("error creating api client: %w", err)
			}
			return setup(cmd.Context(), api, token, keyFile, out)
		},
	}
	cmd.Flags().StringVarP(&keyFile, "key-file", "k", "", "path to the key file to create (default $HOME/.cloudflare)")
	return cmd
}

func setup(ctx context.Context, api tokenVerifier, token, keyFile string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	fmt.Fprintln(out, "verifying token...")
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("expected api token status to be \"active\"; got \"%s\"", result.Status)
	}

	if err := config.WriteKey(keyFile, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "token written to \"%s\"\n", keyFile)
	return nil
}
