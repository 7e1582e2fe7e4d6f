package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr-aminul/moneylogger/internal/httpapi"
	"github.com/mr-aminul/moneylogger/pkg/config"
	"github.com/mr-aminul/moneylogger/pkg/voice"
)

func newParseCommand() *cobra.Command {
	var (
		categories []string
		date       string
		compact    bool
	)

	cmd := &cobra.Command{
		Use:   "parse [transcript...]",
		Short: "Parse transcripts given as arguments, or one per line on stdin",
		Example: `  moneylogger parse "50 taka orange juice yesterday"
  cat notes.txt | moneylogger parse --compact`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ref := time.Now().In(loc)
			if date != "" {
				if ref, err = time.ParseInLocation(voice.ISODateLayout, date, loc); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			cats := cfg.Categories
			if c := voice.CanonicalCategories(categories); len(c) > 0 {
				cats = c
			}

			texts := args
			if len(texts) == 0 {
				if texts, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			parser := voice.New(voice.WithFallbackCategory(cfg.FallbackCategory))
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			for _, text := range texts {
				parsed := parser.ParseAt(text, cats, ref)
				resp := httpapi.ParseResponse{ParsedExpense: parsed, Validation: parser.Validate(parsed)}
				if err := enc.Encode(resp); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Category taxonomy (default: MONEYLOGGER_CATEGORIES)")
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD for relative dates (default: today)")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print one JSON object per line")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return lines, nil
}
