package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/config"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/menu"
)

func menuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Inspect the scripted menu",
	}
	cmd.AddCommand(menuCheckCmd())
	return cmd
}

func menuCheckCmd() *cobra.Command {
	var menuPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the menu and list its entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if menuPath == "" {
				menuPath = cfg.Menu.Path
			}
			m, err := menu.LoadFile(menuPath, cfg.Menu.Vars())
			if err != nil {
				return err
			}
			printMenu(cmd.OutOrStdout(), m)
			return nil
		},
	}
	cmd.Flags().StringVarP(&menuPath, "file", "f", "", "menu YAML file (default: configured path or built-in menu)")
	return cmd
}

func printMenu(w io.Writer, m menu.Menu) {
	fmt.Fprintf(w, "escalate (%d)\n", len(m.Escalate))
	for _, key := range sortedKeys(m.Escalate) {
		fmt.Fprintf(w, "  %s: %s\n", key, m.Escalate[key])
	}
	for _, section := range []struct {
		name  string
		table menu.Table
	}{
		{"message", m.Message},
		{"postback", m.Postback},
	} {
		fmt.Fprintf(w, "%s (%d)\n", section.name, len(section.table))
		for _, key := range sortedKeys(section.table) {
			fmt.Fprintf(w, "  %s: %d payload(s)\n", key, len(menu.NonEmpty(section.table[key])))
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
