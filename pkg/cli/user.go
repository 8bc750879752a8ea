package cli

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"github.com/spf13/cobra"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage team members and roles",
	}
	cmd.AddCommand(
		a.userAddCmd(),
		a.userListCmd(),
		a.userRmCmd(),
		a.userCurrentCmd(),
		a.userRolesCmd(),
	)
	return cmd
}

func (a *app) userAddCmd() *cobra.Command {
	var role, login string
	cmd := &cobra.Command{
		Use:   "add <name> <email>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			u, err := a.users.Add(store.UserDraft{Name: args[0], Email: args[1], Role: role, ExternalIdentity: login})
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Added user %d %s (%s)\n", u.ID, u.Name, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "developer", "role from the registry")
	cmd.Flags().StringVar(&login, "login", "", "GitHub login")
	return cmd
}

func (a *app) userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			current, _ := a.users.Current()
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tLOGIN")
			for _, u := range a.users.List() {
				mark := ""
				if u.ID == current.ID {
					mark = " *"
				}
				login := u.ExternalIdentity
				if login == "" {
					login = "-"
				}
				fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t%s\n", u.ID, mark, u.Name, u.Email, u.Role, login)
			}
			return tw.Flush()
		},
	}
}

func (a *app) userRmCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a user and unassign their tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			u, err := a.resolveUser(args[0])
			if err != nil {
				return err
			}
			if !yes {
				assigned := 0
				for _, t := range a.tasks.List() {
					if t.IsAssignedTo(u.ID) {
						assigned++
					}
				}
				fmt.Fprintf(out(cmd), "Delete %s and unassign %d task(s)? [y/N] ", u.Name, assigned)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					fmt.Fprintln(out(cmd), "Aborted.")
					return nil
				}
			}
			ids, err := board.NewService(a.tasks, a.users, a.log).DeleteUser(u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted user %d; unassigned %d task(s)\n", u.ID, len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (a *app) userCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current [user]",
		Short: "Show or set the user comments are written as",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if len(args) == 1 {
				u, err := a.resolveUser(args[0])
				if err != nil {
					return err
				}
				if err := a.users.SetCurrent(u.ID); err != nil {
					return err
				}
			}
			u, ok := a.users.Current()
			if !ok {
				fmt.Fprintln(out(cmd), "No current user.")
				return nil
			}
			fmt.Fprintf(out(cmd), "Current user: %d %s\n", u.ID, u.Name)
			return nil
		},
	}
}

func (a *app) userRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List, add or remove roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			for _, r := range a.users.Roles() {
				fmt.Fprintln(out(cmd), r)
			}
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <role>",
			Short: "Register a role",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.open(); err != nil {
					return err
				}
				return a.users.AddRole(args[0])
			},
		},
		&cobra.Command{
			Use:   "rm <role>",
			Short: "Remove a role no user holds",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.open(); err != nil {
					return err
				}
				return a.users.RemoveRole(args[0])
			},
		},
	)
	return cmd
}
