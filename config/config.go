package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/botmesh/core"
)

// Default file names probed by LoadDefault, in order.
var defaultFiles = []string{"botmesh.yaml", "botmesh.yml"}

// EnvToken is the environment variable holding the Discord bot token. The
// token is never read from the config file.
const EnvToken = "DISCORD_TOKEN"

// Config is the bot configuration. Zero values fall back to the defaults
// applied by Load.
type Config struct {
	// ClientID is the Discord application id, used for command registration.
	ClientID string `yaml:"clientId" json:"clientId"`

	// Intents lists gateway intents by name ("guilds", "guild_messages",
	// "message_content", ...). Empty means the default set.
	Intents []string `yaml:"intents" json:"intents"`

	// TestGuilds scopes command registration to the listed guild ids instead
	// of registering globally. Guild commands propagate instantly, which is
	// what you want during development.
	TestGuilds []string `yaml:"testGuilds" json:"testGuilds"`

	// Sage holds the bot-wide defaults for the auto-defer dispatcher.
	// Per-command configuration overrides these fields individually.
	Sage core.SageConfig `yaml:"sage" json:"sage"`

	// LifecycleTimeout bounds _start and _stop handlers.
	LifecycleTimeout time.Duration `yaml:"lifecycleTimeout" json:"lifecycleTimeout"`

	// Flashcore selects and configures the persistence adapter.
	Flashcore FlashcoreConfig `yaml:"flashcore" json:"flashcore"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" json:"log"`

	// DisabledModules lists modules excluded from dispatch. Their commands
	// stay registered with Discord but resolve to "command not found".
	DisabledModules []string `yaml:"disabledModules" json:"disabledModules"`

	// Plugins holds per-plugin option maps keyed by plugin name, passed
	// through to the plugin's Setup untouched.
	Plugins map[string]map[string]any `yaml:"plugins" json:"plugins"`

	// Token is resolved from the environment by Load.
	Token string `yaml:"-" json:"-"`
}

// FlashcoreConfig selects the persistence backend.
type FlashcoreConfig struct {
	// Backend is "memory", "file" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// Path is the data directory (file backend) or database file (sqlite
	// backend).
	Path string `yaml:"path" json:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Intents:          []string{"guilds", "guild_messages"},
		LifecycleTimeout: 5 * time.Second,
		Flashcore:        FlashcoreConfig{Backend: "memory", Path: ".botmesh/flashcore"},
		Log:              LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path, overlays the environment and validates
// the result. A ".env" file in the working directory is loaded first when
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault probes the default file names and falls back to Default plus
// the environment when none exists.
func LoadDefault() (*Config, error) {
	for _, name := range defaultFiles {
		if _, err := os.Stat(name); err == nil {
			return Load(name)
		}
	}

	_ = godotenv.Load()

	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rawConfig mirrors Config with string durations so YAML can carry values
// like "250ms" or "5s".
type rawConfig struct {
	ClientID         string                    `yaml:"clientId"`
	Intents          []string                  `yaml:"intents"`
	TestGuilds       []string                  `yaml:"testGuilds"`
	Sage             rawSage                   `yaml:"sage"`
	LifecycleTimeout string                    `yaml:"lifecycleTimeout"`
	Flashcore        FlashcoreConfig           `yaml:"flashcore"`
	Log              LogConfig                 `yaml:"log"`
	DisabledModules  []string                  `yaml:"disabledModules"`
	Plugins          map[string]map[string]any `yaml:"plugins"`
}

type rawSage struct {
	Defer        *bool  `yaml:"defer"`
	Buffer       string `yaml:"buffer"`
	Ephemeral    bool   `yaml:"ephemeral"`
	ErrorReplies *bool  `yaml:"errorReplies"`
	Timeout      string `yaml:"timeout"`
}

// UnmarshalYAML decodes the file form, parsing durations from strings.
// Fields absent from the document keep their current values.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := rawConfig{
		ClientID:        c.ClientID,
		Intents:         c.Intents,
		TestGuilds:      c.TestGuilds,
		Flashcore:       c.Flashcore,
		Log:             c.Log,
		DisabledModules: c.DisabledModules,
		Plugins:         c.Plugins,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.ClientID = raw.ClientID
	c.Intents = raw.Intents
	c.TestGuilds = raw.TestGuilds
	c.Flashcore = raw.Flashcore
	c.Log = raw.Log
	c.DisabledModules = raw.DisabledModules
	c.Plugins = raw.Plugins

	if raw.LifecycleTimeout != "" {
		d, err := time.ParseDuration(raw.LifecycleTimeout)
		if err != nil {
			return fmt.Errorf("parse lifecycleTimeout: %w", err)
		}
		c.LifecycleTimeout = d
	}

	c.Sage.Defer = raw.Sage.Defer
	c.Sage.Ephemeral = raw.Sage.Ephemeral
	c.Sage.ErrorReplies = raw.Sage.ErrorReplies
	if raw.Sage.Buffer != "" {
		d, err := time.ParseDuration(raw.Sage.Buffer)
		if err != nil {
			return fmt.Errorf("parse sage.buffer: %w", err)
		}
		c.Sage.Buffer = &d
	}
	if raw.Sage.Timeout != "" {
		d, err := time.ParseDuration(raw.Sage.Timeout)
		if err != nil {
			return fmt.Errorf("parse sage.timeout: %w", err)
		}
		c.Sage.Timeout = d
	}

	return nil
}

// applyEnv overlays BOTMESH_* variables and the Discord token.
func (c *Config) applyEnv() {
	c.Token = os.Getenv(EnvToken)

	if v := os.Getenv("DISCORD_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("BOTMESH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BOTMESH_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("BOTMESH_FLASHCORE_BACKEND"); v != "" {
		c.Flashcore.Backend = v
	}
	if v := os.Getenv("BOTMESH_FLASHCORE_PATH"); v != "" {
		c.Flashcore.Path = v
	}
	if v := os.Getenv("BOTMESH_TEST_GUILDS"); v != "" {
		c.TestGuilds = splitList(v)
	}
	if v := os.Getenv("BOTMESH_SAGE_BUFFER_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			d := time.Duration(ms) * time.Millisecond
			c.Sage.Buffer = &d
		}
	}
	if v := os.Getenv("BOTMESH_SAGE_DEFER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Sage.Defer = &b
		}
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("config: %s is not set", EnvToken)
	}
	if c.LifecycleTimeout < 0 {
		return fmt.Errorf("config: lifecycleTimeout must not be negative")
	}
	if c.Sage.Buffer != nil && *c.Sage.Buffer < 0 {
		return fmt.Errorf("config: sage.buffer must not be negative")
	}
	if c.Sage.Timeout < 0 {
		return fmt.Errorf("config: sage.timeout must not be negative")
	}

	switch c.Flashcore.Backend {
	case "", "memory":
	case "file", "sqlite":
		if c.Flashcore.Path == "" {
			return fmt.Errorf("config: flashcore.path is required for the %s backend", c.Flashcore.Backend)
		}
	default:
		return fmt.Errorf("config: unknown flashcore backend %q", c.Flashcore.Backend)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}

	return nil
}

// ModuleDisabled reports whether module is listed in DisabledModules.
func (c *Config) ModuleDisabled(module string) bool {
	for _, m := range c.DisabledModules {
		if m == module {
			return true
		}
	}
	return false
}

// PluginOptions returns the option map for a plugin, never nil.
func (c *Config) PluginOptions(name string) map[string]any {
	if opts, ok := c.Plugins[name]; ok {
		return opts
	}
	return map[string]any{}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
