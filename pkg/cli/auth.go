package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/auth"
	"github.com/harrisonrobin/taskboard/pkg/google"
	"github.com/spf13/cobra"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store credentials for GitHub or Google",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "github [token]",
			Short: "Save a GitHub personal access token (read from stdin when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var token string
				if len(args) == 1 {
					token = args[0]
				} else {
					fmt.Fprint(out(cmd), "GitHub token: ")
					line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					token = line
				}
				token = strings.TrimSpace(token)
				if token == "" {
					return fmt.Errorf("no token given")
				}
				a.cfg.GitHub.Token = token
				if err := a.saveConfig(); err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), "GitHub token saved.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "google",
			Short: "Authorize Google Sheets access in the browser",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := a.configDir()
				if err != nil {
					return err
				}
				g := &auth.Google{
					Dir:    dir,
					Scopes: google.Scopes,
					Log:    a.log.Named("auth"),
					Prompt: func(url string) {
						fmt.Fprintf(out(cmd), "Open this URL in your browser to authorize taskboard:\n%s\n", url)
					},
				}
				if err := g.Reset(); err != nil {
					return err
				}
				if _, err := g.Client(cmd.Context()); err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
				fmt.Fprintf(out(cmd), "Authentication successful! Token saved to %s\n", g.TokenPath())
				return nil
			},
		},
	)
	return cmd
}
