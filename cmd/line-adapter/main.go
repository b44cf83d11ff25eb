package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/config"
)

var configPath string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "line-adapter",
		Short:        "LINE to Twilio Conversations inbound adapter",
		Long:         "Receives LINE webhooks, answers the scripted menu and hands users over to Flex operators through Twilio Conversations.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml (default: $CONFIG_PATH or ./config.toml)")

	root.AddCommand(serveCmd())
	root.AddCommand(signCmd())
	root.AddCommand(menuCmd())
	return root
}

func resolveConfigPath() string {
	if strings.TrimSpace(configPath) != "" {
		return configPath
	}
	if env := strings.TrimSpace(os.Getenv("CONFIG_PATH")); env != "" {
		return env
	}
	return config.DefaultConfigPath
}
