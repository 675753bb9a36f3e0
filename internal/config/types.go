package config

import "time"

// Execution modes. The mode selects which origin allow-list the bridge uses.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Store drivers.
const (
	StoreDriverFile   = "file"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// WildcardOrigin delivers an outbound message regardless of the receiver's origin.
const WildcardOrigin = "*"

type Config struct {
	Mode              string        `yaml:"mode" json:"mode"`                           // development | production
	Gateway           GatewayConfig `yaml:"gateway" json:"gateway"`
	Origins           OriginsConfig `yaml:"origins" json:"origins"`
	ParentAppURL      string        `yaml:"parentAppURL" json:"parentAppURL"`           // target for REQUEST_USER_DATA and the auth listener allow-list
	ReplyTargetOrigin string        `yaml:"replyTargetOrigin" json:"replyTargetOrigin"` // target for CANVAS_ACK / CANVAS_ERROR
	Context           ContextConfig `yaml:"context" json:"context"`
	Store             StoreConfig   `yaml:"store" json:"store"`
	LLM               LLMConfig     `yaml:"llm" json:"llm"`
	PDF               PDFConfig     `yaml:"pdf" json:"pdf"`
	Log               LogConfig     `yaml:"log" json:"log"`
}

type GatewayConfig struct {
	Port int        `yaml:"port" json:"port"`
	Auth AuthConfig `yaml:"auth" json:"auth"`
}

type AuthConfig struct {
	Token string `yaml:"token" json:"token"`
}

// OriginsConfig holds the fixed allow-lists for each mode.
type OriginsConfig struct {
	Development []string `yaml:"development" json:"development"`
	Production  []string `yaml:"production" json:"production"`
}

// ContextConfig configures the retrieval endpoint used by the augmenter.
type ContextConfig struct {
	BaseURL string        `yaml:"baseURL" json:"baseURL"`
	Limit   int           `yaml:"limit" json:"limit"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type StoreConfig struct {
	Driver string      `yaml:"driver" json:"driver"` // file | redis | memory
	Dir    string      `yaml:"dir" json:"dir"`
	Name   string      `yaml:"name" json:"name"`
	Redis  RedisConfig `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

type LLMConfig struct {
	APIKey  string `yaml:"apiKey" json:"apiKey"`
	BaseURL string `yaml:"baseURL" json:"baseURL"`
	Model   string `yaml:"model" json:"model"`
	// Fallbacks are tried in order when the model is rate limited or rejected.
	Fallbacks []string `yaml:"fallbacks" json:"fallbacks"`
}

// Enabled reports whether an LLM endpoint is usable.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" && c.Model != "" }

type PDFConfig struct {
	FontFamily string  `yaml:"fontFamily" json:"fontFamily"`
	FontSize   float64 `yaml:"fontSize" json:"fontSize"`
	Left       float64 `yaml:"left" json:"left"`
	Top        float64 `yaml:"top" json:"top"`
	Width      float64 `yaml:"width" json:"width"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"` // debug | info | warn | error
}

// IsProduction reports whether the production allow-list applies.
func (c *Config) IsProduction() bool { return c.Mode == ModeProduction }

// AllowedOrigins returns the bridge allow-list for the current mode.
func (c *Config) AllowedOrigins() []string {
	if c.IsProduction() {
		return c.Origins.Production
	}
	return c.Origins.Development
}

// LogTargetOrigin is where CANVAS_LOG notifications are posted: the production
// origin in production, any origin in development (ports differ locally).
func (c *Config) LogTargetOrigin() string {
	if c.IsProduction() && len(c.Origins.Production) > 0 {
		return c.Origins.Production[0]
	}
	return WildcardOrigin
}

func DefaultConfig() *Config {
	return &Config{
		Mode: ModeDevelopment,
		Gateway: GatewayConfig{
			Port: 19810,
		},
		Origins: OriginsConfig{
			Development: []string{"http://localhost:4200", "http://localhost:3333"},
			Production:  []string{"https://your-production-app-url.com"},
		},
		ParentAppURL:      "http://localhost:4200",
		ReplyTargetOrigin: WildcardOrigin,
		Context: ContextConfig{
			Limit:   10,
			Timeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Driver: StoreDriverFile,
			Name:   "canvas-store",
		},
		LLM: LLMConfig{
			Model: "gpt-4o",
		},
		PDF: PDFConfig{
			FontFamily: "Helvetica",
			FontSize:   12,
			Left:       15,
			Top:        20,
			Width:      180,
		},
		Log: LogConfig{Level: "info"},
	}
}
