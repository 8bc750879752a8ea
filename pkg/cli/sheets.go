package cli

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/taskboard/pkg/google"
	"github.com/harrisonrobin/taskboard/pkg/spreadsheet"
	"github.com/spf13/cobra"
)

func (a *app) sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Export to or import from the configured Google Sheet",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Overwrite the sheet range with the task list",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.spreadsheet(cmd.Context())
				if err != nil {
					return err
				}
				tasks := a.tasks.List()
				if err := s.Export(cmd.Context(), tasks); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Exported %d task(s) to %s\n", len(tasks), a.cfg.Sheets.Range)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import",
			Short: "Replace the task list with the sheet's rows",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.spreadsheet(cmd.Context())
				if err != nil {
					return err
				}
				tasks, err := s.Import(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Imported %d task(s)\n", len(tasks))
				return nil
			},
		},
	)
	return cmd
}

func (a *app) spreadsheet(ctx context.Context) (*spreadsheet.Adapter, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	dir, err := a.configDir()
	if err != nil {
		return nil, err
	}
	values, err := google.NewClient(ctx, dir, a.cfg.Sheets.SpreadsheetID, a.log.Named("auth"))
	if err != nil {
		return nil, err
	}
	return spreadsheet.New(values, a.tasks, a.users, a.cfg.Sheets.Range, a.log.Named("sheets")), nil
}
