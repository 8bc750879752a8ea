package cli

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration; the token is masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				shown := *a.cfg
				shown.GitHub.Token = mask(shown.GitHub.Token)
				return toml.NewEncoder(out(cmd)).Encode(shown)
			},
		},
		&cobra.Command{
			Use:   "set-repo <owner/repo>",
			Short: "Select the GitHub repository to sync with",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.cfg.GitHub.SetRepository(args[0]); err != nil {
					return err
				}
				if err := a.saveConfig(); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Repository set to %s\n", a.cfg.GitHub.Repository())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-sheet <spreadsheet-id> [range]",
			Short: "Select the Google Sheet (and optionally the range) to export to",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a.cfg.Sheets.SpreadsheetID = strings.TrimSpace(args[0])
				if len(args) == 2 {
					a.cfg.Sheets.Range = strings.TrimSpace(args[1])
				}
				if err := a.saveConfig(); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Spreadsheet set to %s (%s)\n", a.cfg.Sheets.SpreadsheetID, a.cfg.Sheets.Range)
				return nil
			},
		},
	)
	return cmd
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
