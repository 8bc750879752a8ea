// Package cli wires the taskboard commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/config"
	"github.com/harrisonrobin/taskboard/pkg/logger"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what the commands share. Stores are opened on first use so that
// config and auth commands never touch the database.
type app struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger

	db    *store.DB
	tasks *store.TaskStore
	users *store.UserStore
}

// newRootCmd builds the command tree. The caller closes the app.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "A task board synced with GitHub issues and Google Sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/taskboard/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		a.taskCmd(),
		a.commentCmd(),
		a.attachCmd(),
		a.userCmd(),
		a.boardCmd(),
		a.githubCmd(),
		a.sheetsCmd(),
		a.authCmd(),
		a.configCmd(),
		a.serveCmd(),
	)
	return root, a
}

// Execute runs the CLI and reports a failure as a single line on stderr.
func Execute(ctx context.Context, version string) error {
	root, a := newRootCmd()
	defer a.close()
	root.Version = version
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) init() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.log, err = logger.New(logger.Config{Level: level, Encoding: cfg.Log.Encoding})
	return err
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.tasks, a.users = nil, nil, nil
	return err
}

func (a *app) saveConfig() error {
	if a.configPath != "" {
		return config.SaveFile(a.configPath, a.cfg)
	}
	return config.Save(a.cfg)
}

func (a *app) configDir() (string, error) {
	if a.configPath != "" {
		return filepath.Dir(a.configPath), nil
	}
	return config.GetConfigDir()
}

func (a *app) open() error {
	if a.db != nil {
		return nil
	}
	db, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return err
	}
	tasks, err := store.NewTaskStore(db, a.log.Named("tasks"))
	if err != nil {
		db.Close()
		return err
	}
	users, err := store.NewUserStore(db, a.log.Named("users"))
	if err != nil {
		db.Close()
		return err
	}
	a.db, a.tasks, a.users = db, tasks, users
	return nil
}

// resolveUser accepts a numeric id, a name or an email.
func (a *app) resolveUser(ref string) (model.User, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		if u, ok := a.users.Get(id); ok {
			return u, nil
		}
		return model.User{}, fmt.Errorf("%w: %d", store.ErrUserNotFound, id)
	}
	if u, ok := a.users.FindByName(ref); ok {
		return u, nil
	}
	return model.User{}, fmt.Errorf("%w: %q", store.ErrUserNotFound, ref)
}

// userName is the board's NameFunc.
func (a *app) userName(id int) string {
	if u, ok := a.users.Get(id); ok {
		return u.Name
	}
	return ""
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
