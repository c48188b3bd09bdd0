package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/norholm/laguz/internal/collection"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Engine    EngineConfig      `yaml:"engine"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Engine.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig holds the path to the Markdown workspace directory.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the activity database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EngineConfig tunes the collection engine.
type EngineConfig struct {
	// StrictNotFound makes patch and delete commands fail on unknown ids
	// instead of silently doing nothing.
	StrictNotFound bool   `yaml:"strict_not_found"`
	SortBy         string `yaml:"sort_by"`
	SortDirection  string `yaml:"sort_direction"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.SortBy == "" {
		c.SortBy = string(collection.SortByCreated)
	}
	if c.SortDirection == "" {
		c.SortDirection = string(collection.Descending)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.SortBy, validation.In(string(collection.SortByCreated), string(collection.SortByTitle))),
		validation.Field(&c.SortDirection, validation.In(string(collection.Ascending), string(collection.Descending))),
	)
}

// StoreOptions translates the engine configuration into store options.
func (c *EngineConfig) StoreOptions() []collection.StoreOption {
	opts := []collection.StoreOption{
		collection.WithDefaultSort(collection.SortBy(c.SortBy), collection.SortDirection(c.SortDirection)),
	}
	if c.StrictNotFound {
		opts = append(opts, collection.WithStrictNotFound())
	}
	return opts
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path: "./workspace",
		},
		SQLite: SQLiteConfig{
			Path: "./laguz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Engine: EngineConfig{
			SortBy:        string(collection.SortByCreated),
			SortDirection: string(collection.Descending),
		},
	}
}
