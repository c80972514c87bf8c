package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Limits applied to ordering settings.
const (
	MaxPageSizeCeiling     = 5000
	defaultPageSize        = 10
	defaultBusyTimeoutMS   = 5000
	defaultConflictRetries = 3
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Ordering OrderingConfig `toml:"ordering"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	UI       UIConfig       `toml:"ui"`
}

type DatabaseConfig struct {
	Path          string `toml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

type OrderingConfig struct {
	MaxPageSize          int `toml:"max_page_size"`
	DefaultPageSize      int `toml:"default_page_size"`
	WriteConflictRetries int `toml:"write_conflict_retries"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// UIConfig holds terminal browser settings.
type UIConfig struct {
	// PageSize of zero defers to ordering.default_page_size.
	PageSize      int       `toml:"page_size"`
	MarkdownStyle string    `toml:"markdown_style"`
	Keys          KeyConfig `toml:"keys"`
}

// KeyConfig holds key overrides for ordering actions.
type KeyConfig struct {
	MoveTaskUp    string `toml:"move_task_up"`
	MoveTaskDown  string `toml:"move_task_down"`
	MoveTaskFirst string `toml:"move_task_first"`
	MoveTaskLast  string `toml:"move_task_last"`
	Rebalance     string `toml:"rebalance"`
}

var markdownStyles = []string{"ascii", "dark", "dracula", "light", "notty", "pink", "tokyo-night"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path:          dbPath,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Ordering: OrderingConfig{
			MaxPageSize:          MaxPageSizeCeiling,
			DefaultPageSize:      defaultPageSize,
			WriteConflictRetries: defaultConflictRetries,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".tasktree/log",
			},
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Server.HTTPBind = strings.TrimSpace(c.Server.HTTPBind)
	c.Server.APIEndpoint = strings.TrimSpace(c.Server.APIEndpoint)
	c.Server.MCPEndpoint = strings.TrimSpace(c.Server.MCPEndpoint)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.DevFile.Dir = strings.TrimSpace(c.Logging.DevFile.Dir)
	c.UI.MarkdownStyle = strings.ToLower(strings.TrimSpace(c.UI.MarkdownStyle))
	if c.UI.MarkdownStyle == "" {
		c.UI.MarkdownStyle = "dark"
	}
	keys := &c.UI.Keys
	for _, v := range []*string{&keys.MoveTaskUp, &keys.MoveTaskDown, &keys.MoveTaskFirst, &keys.MoveTaskLast, &keys.Rebalance} {
		*v = strings.TrimSpace(*v)
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("database.busy_timeout_ms must be >= 0, got %d", c.Database.BusyTimeoutMS)
	}

	if c.Ordering.MaxPageSize < 1 || c.Ordering.MaxPageSize > MaxPageSizeCeiling {
		return fmt.Errorf("ordering.max_page_size must be within [1, %d], got %d", MaxPageSizeCeiling, c.Ordering.MaxPageSize)
	}
	if c.Ordering.DefaultPageSize < 1 || c.Ordering.DefaultPageSize > c.Ordering.MaxPageSize {
		return fmt.Errorf("ordering.default_page_size must be within [1, max_page_size], got %d", c.Ordering.DefaultPageSize)
	}
	if c.Ordering.WriteConflictRetries < 0 {
		return fmt.Errorf("ordering.write_conflict_retries must be >= 0, got %d", c.Ordering.WriteConflictRetries)
	}

	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		if endpoint == "" || !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with '/', got %q", name, endpoint)
		}
	}

	if c.UI.PageSize < 0 || c.UI.PageSize > c.Ordering.MaxPageSize {
		return fmt.Errorf("ui.page_size must be within [0, max_page_size], got %d", c.UI.PageSize)
	}
	if !slices.Contains(markdownStyles, c.UI.MarkdownStyle) {
		return fmt.Errorf("invalid ui.markdown_style: %q", c.UI.MarkdownStyle)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
