package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPluginsCommand() *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List reader and writer plugins, or print one plugin's config schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := newRegistry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if schema != "" {
				var s map[string]any
				if p, err := registry.GetReader(schema); err == nil {
					s = p.ConfigSchema()
				} else if p, err := registry.GetWriter(schema); err == nil {
					s = p.ConfigSchema()
				} else {
					return fmt.Errorf("plugin %q not found", schema)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			heading := color.New(color.Bold).FprintlnFunc()
			name := color.New(color.FgCyan).SprintfFunc()

			heading(out, "Readers (MONEYLOGGER_READER):")
			for _, p := range registry.ListReaders() {
				fmt.Fprintf(out, "  %s %s%s\n", name("%-10s", p.Name()), p.Description(), scopes(p.RequiredScopes()))
			}
			fmt.Fprintln(out)
			heading(out, "Writers (MONEYLOGGER_WRITER):")
			for _, p := range registry.ListWriters() {
				fmt.Fprintf(out, "  %s %s%s\n", name("%-10s", p.Name()), p.Description(), scopes(p.RequiredScopes()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Print the JSON config schema of the named plugin")
	return cmd
}

func scopes(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return color.New(color.Faint).Sprintf(" [oauth: %s]", strings.Join(s, ", "))
}
