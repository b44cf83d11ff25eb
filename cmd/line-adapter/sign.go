package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/config"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
)

func signCmd() *cobra.Command {
	var (
		secret   string
		bodyPath string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the x-line-signature header for a webhook body",
		Long: `Computes the signature LINE would send for a request body, for replaying
captured webhooks with curl. The body is read from --file or stdin; the secret
defaults to the configured channel secret.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(secret) == "" {
				cfg, err := config.Load(resolveConfigPath())
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				secret = cfg.Line.ChannelSecret
			}
			if strings.TrimSpace(secret) == "" {
				return fmt.Errorf("channel secret is required (--secret or LINE_CHANNEL_SECRET)")
			}

			var in io.Reader = cmd.InOrStdin()
			if bodyPath != "" {
				f, err := os.Open(bodyPath)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line.Sign(body, secret))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "LINE channel secret")
	cmd.Flags().StringVarP(&bodyPath, "file", "f", "", "request body file (default: stdin)")
	return cmd
}
