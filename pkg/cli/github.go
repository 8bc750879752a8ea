package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/taskboard/pkg/issuesync"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/tracker"
	"github.com/spf13/cobra"
)

func (a *app) githubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "github",
		Aliases: []string{"gh"},
		Short:   "Synchronize with the configured repository's issues",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "push",
			Short: "Create or update one issue per task",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.issueSync(cmd.Context())
				if err != nil {
					return err
				}
				res, err := s.Push(cmd.Context(), a.tasks.List())
				if err != nil {
					return explainTrackerErr(err)
				}
				fmt.Fprintf(out(cmd), "Pushed %d task(s): %d created, %d updated, %d label(s) created\n",
					res.Pushed, res.Created, res.Updated, res.LabelsCreated)
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Replace the local task list with the repository's issues",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.issueSync(cmd.Context())
				if err != nil {
					return err
				}
				res, err := s.Pull(cmd.Context())
				if err != nil {
					return explainTrackerErr(err)
				}
				fmt.Fprintf(out(cmd), "Pulled %d task(s)\n", len(res.Tasks))
				return nil
			},
		},
		&cobra.Command{
			Use:   "sync",
			Short: "Push, then pull",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.issueSync(cmd.Context())
				if err != nil {
					return err
				}
				res, err := s.Sync(cmd.Context(), a.tasks.List())
				if err != nil {
					return explainTrackerErr(err)
				}
				fmt.Fprintf(out(cmd), "Synchronized %d task(s)\n", len(res.Tasks))
				return nil
			},
		},
		&cobra.Command{
			Use:   "import-users",
			Short: "Add a user for every repository collaborator not yet mapped",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.issueSync(cmd.Context())
				if err != nil {
					return err
				}
				added, err := s.ImportCollaborators(cmd.Context())
				if err != nil {
					return explainTrackerErr(err)
				}
				for _, u := range added {
					fmt.Fprintf(out(cmd), "Added user %d %s\n", u.ID, u.ExternalIdentity)
				}
				fmt.Fprintf(out(cmd), "Imported %d collaborator(s)\n", len(added))
				return nil
			},
		},
	)
	return cmd
}

func (a *app) issueSync(ctx context.Context) (*issuesync.Adapter, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	gh := a.cfg.GitHub
	client, err := tracker.NewClient(ctx, tracker.Options{
		Token:   gh.Token,
		Owner:   gh.Owner,
		Repo:    gh.Repo,
		BaseURL: gh.BaseURL,
		Logger:  a.log.Named("tracker"),
	})
	if err != nil {
		return nil, err
	}
	return issuesync.New(client, a.tasks, a.users, issuesync.Config{
		LabelColors: map[model.Status]string{
			model.StatusBacklog:    gh.Labels.Backlog,
			model.StatusTodo:       gh.Labels.Todo,
			model.StatusInProgress: gh.Labels.InProgress,
			model.StatusDone:       gh.Labels.Done,
		},
		Logger: a.log.Named("issuesync"),
	}), nil
}

// explainTrackerErr adds the command that fixes a missing token or repository.
func explainTrackerErr(err error) error {
	switch {
	case errors.Is(err, tracker.ErrUnauthenticated):
		return fmt.Errorf("%w; run `taskboard auth github`", err)
	case errors.Is(err, tracker.ErrRepositoryNotSelected):
		return fmt.Errorf("%w; run `taskboard config set-repo owner/repo`", err)
	}
	return err
}
