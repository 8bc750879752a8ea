package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	xdgAppName = "taskboard"
	configFile = "config.toml"
	dbFile     = "board.db"
)

type Config struct {
	GitHub GitHubConfig `toml:"github"`
	Sheets SheetsConfig `toml:"sheets"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

type GitHubConfig struct {
	Token   string `toml:"token"`
	Owner   string `toml:"owner"`
	Repo    string `toml:"repo"`
	BaseURL string `toml:"base_url"` // empty for github.com
	// Labels maps status label names to their hex colors.
	Labels LabelColors `toml:"labels"`
}

type LabelColors struct {
	Backlog    string `toml:"backlog"`
	Todo       string `toml:"todo"`
	InProgress string `toml:"in_progress"`
	Done       string `toml:"done"`
}

type SheetsConfig struct {
	SpreadsheetID string `toml:"spreadsheet_id"`
	Range         string `toml:"range"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
}

// Repository returns "owner/repo", or "" when no repository is selected.
func (g GitHubConfig) Repository() string {
	if g.Owner == "" || g.Repo == "" {
		return ""
	}
	return g.Owner + "/" + g.Repo
}

// SetRepository parses "owner/repo".
func (g *GitHubConfig) SetRepository(s string) error {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("repository must be in owner/repo form, got %q", s)
	}
	g.Owner, g.Repo = owner, repo
	return nil
}

func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config file (missing file means defaults), then applies
// .env and environment overrides.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	_ = godotenv.Load(".env")
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := firstEnv("TASKBOARD_GITHUB_TOKEN", "GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("TASKBOARD_GITHUB_REPO"); v != "" {
		if err := cfg.GitHub.SetRepository(v); err != nil {
			return fmt.Errorf("TASKBOARD_GITHUB_REPO: %w", err)
		}
	}
	if v := os.Getenv("TASKBOARD_SHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("TASKBOARD_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_ENCODING"); v != "" {
		cfg.Log.Encoding = v
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	labels := &cfg.GitHub.Labels
	if labels.Backlog == "" {
		labels.Backlog = "6c757d"
	}
	if labels.Todo == "" {
		labels.Todo = "0d6efd"
	}
	if labels.InProgress == "" {
		labels.InProgress = "ffc107"
	}
	if labels.Done == "" {
		labels.Done = "198754"
	}
	if cfg.Sheets.Range == "" {
		cfg.Sheets.Range = "Tasks!A1:I"
	}
	if cfg.Store.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return err
		}
		cfg.Store.Path = filepath.Join(dir, dbFile)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "console"
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the file may hold an API token.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
