package config

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var current atomic.Pointer[Config]

var (
	onReloadMu        sync.Mutex
	onReloadCallbacks []func(*Config)
)

// Get returns the current in-memory config (hot-reloaded when the file changes).
func Get() *Config { return current.Load() }

// Set sets the current in-memory config. Used at startup and by the file watcher.
func Set(c *Config) {
	if c != nil {
		current.Store(c)
	}
}

// RegisterOnReload registers a callback that runs after config is hot-reloaded.
func RegisterOnReload(fn func(*Config)) {
	onReloadMu.Lock()
	defer onReloadMu.Unlock()
	onReloadCallbacks = append(onReloadCallbacks, fn)
}

func notifyReload(cfg *Config) {
	onReloadMu.Lock()
	cb := make([]func(*Config), len(onReloadCallbacks))
	copy(cb, onReloadCallbacks)
	onReloadMu.Unlock()
	for _, fn := range cb {
		fn(cfg)
	}
}

//go:embed config.example.yaml
var exampleConfigBytes []byte

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadDotEnv loads .env files into the process environment. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(data, filepath.Dir(path))
}

// LoadFromExample unmarshals the embedded config.example.yaml as the default config.
// baseDir is used to resolve relative paths (store dir).
func LoadFromExample(baseDir string) (*Config, error) {
	cfg, err := parse(exampleConfigBytes, baseDir)
	if err != nil {
		return nil, fmt.Errorf("parse example config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte, baseDir string) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyLoadDefaults(&cfg)
	resolveRelativePaths(&cfg, baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("invalid mode %q, expected %q or %q", c.Mode, ModeDevelopment, ModeProduction)
	}
	switch c.Store.Driver {
	case StoreDriverFile, StoreDriverRedis, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}
	if c.IsProduction() && len(c.Origins.Production) == 0 {
		return fmt.Errorf("production mode requires at least one production origin")
	}
	return nil
}

// unresolved placeholders expand to the empty string so defaults can apply.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return ""
	})
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"CANVAS_MODE", &cfg.Mode},
		{"CANVAS_CONTEXT_API_URL", &cfg.Context.BaseURL},
		{"CANVAS_MAIN_APP_URL", &cfg.ParentAppURL},
		{"CANVAS_TOKEN", &cfg.Gateway.Auth.Token},
		{"CANVAS_STORE_DRIVER", &cfg.Store.Driver},
		{"CANVAS_REDIS_ADDR", &cfg.Store.Redis.Addr},
		{"OPENAI_API_KEY", &cfg.LLM.APIKey},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func applyLoadDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if len(cfg.Origins.Development) == 0 {
		cfg.Origins.Development = def.Origins.Development
	}
	if len(cfg.Origins.Production) == 0 {
		cfg.Origins.Production = def.Origins.Production
	}
	if cfg.ParentAppURL == "" {
		cfg.ParentAppURL = def.ParentAppURL
	}
	if cfg.ReplyTargetOrigin == "" {
		cfg.ReplyTargetOrigin = def.ReplyTargetOrigin
	}
	cfg.Context.BaseURL = strings.TrimRight(cfg.Context.BaseURL, "/")
	if cfg.Context.Limit <= 0 {
		cfg.Context.Limit = def.Context.Limit
	}
	if cfg.Context.Timeout <= 0 {
		cfg.Context.Timeout = def.Context.Timeout
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = def.Store.Driver
	}
	if cfg.Store.Name == "" {
		cfg.Store.Name = def.Store.Name
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = StoreDir()
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.PDF.FontFamily == "" {
		cfg.PDF.FontFamily = def.PDF.FontFamily
	}
	if cfg.PDF.FontSize <= 0 {
		cfg.PDF.FontSize = def.PDF.FontSize
	}
	if cfg.PDF.Left <= 0 {
		cfg.PDF.Left = def.PDF.Left
	}
	if cfg.PDF.Top <= 0 {
		cfg.PDF.Top = def.PDF.Top
	}
	if cfg.PDF.Width <= 0 {
		cfg.PDF.Width = def.PDF.Width
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

func resolveRelativePaths(cfg *Config, baseDir string) {
	if cfg.Store.Dir != "" && !filepath.IsAbs(cfg.Store.Dir) {
		cfg.Store.Dir = filepath.Join(baseDir, cfg.Store.Dir)
	}
}

// ResolveHome returns the CANVAS_HOME directory.
// Priority: CANVAS_HOME env > ~/.canvas/
func ResolveHome() string {
	if home := os.Getenv("CANVAS_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".canvas"
	}
	return filepath.Join(userHome, ".canvas")
}

// ResolveConfigPath finds the config file.
// Priority: --config flag > CANVAS_HOME/config.yaml
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return filepath.Join(ResolveHome(), "config.yaml")
}

// GenerateToken returns a random hex token (32 bytes = 64 chars) for gateway auth.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "fallback-token-please-set-gateway-auth-token-in-config"
	}
	return hex.EncodeToString(b)
}

// CreateFromExample writes the embedded config.example.yaml to targetPath with the token placeholder replaced.
func CreateFromExample(targetPath string) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content := strings.ReplaceAll(string(exampleConfigBytes), "${CANVAS_TOKEN}", GenerateToken())
	if err := os.WriteFile(targetPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
