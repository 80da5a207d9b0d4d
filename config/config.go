package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/updownbot/internal/portfolio"
	"github.com/alejandrodnm/updownbot/internal/signal"
)

// Config es la configuración completa del bot.
type Config struct {
	Bot       BotConfig              `yaml:"bot"`
	API       APIConfig              `yaml:"api"`
	Signal    SignalConfig           `yaml:"signal"`
	Policy    portfolio.PolicyConfig `yaml:"policy"`
	Storage   StorageConfig          `yaml:"storage"`
	Dashboard DashboardConfig        `yaml:"dashboard"`
	Log       LogConfig              `yaml:"log"`
}

// BotConfig controla el loop principal.
type BotConfig struct {
	Asset                string  `yaml:"asset"`             // sol | btc
	IntervalSeconds      float64 `yaml:"interval_seconds"`  // periodo del ciclo
	InitialCapital       float64 `yaml:"initial_capital"`   // baseline si no hay estado guardado
	ResolveBeforeSecs    float64 `yaml:"resolve_before_secs"`
	SearchBackoffSeconds float64 `yaml:"search_backoff_seconds"` // espera cuando no hay mercado activo
	BookDepth            int     `yaml:"book_depth"`
	UseMomentum          *bool   `yaml:"use_momentum"` // nil → true
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase       string `yaml:"clob_base"`
	GammaBase      string `yaml:"gamma_base"`
	BinanceBase    string `yaml:"binance_base"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// SignalConfig ajusta el motor de señales. Ceros → defaults del activo.
type SignalConfig struct {
	WindowSize         int     `yaml:"window_size"`
	Threshold          float64 `yaml:"threshold"`
	MomentumMultiplier float64 `yaml:"momentum_multiplier"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// DashboardConfig controla el servidor HTTP/WebSocket.
type DashboardConfig struct {
	Disabled bool   `yaml:"disabled"`
	Addr     string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// La sección policy se aplica sobre los defaults de la política elegida.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un documento YAML ya leído.
func Parse(data []byte) (*Config, error) {
	// Primera pasada: solo para saber qué política se usa.
	var head struct {
		Policy struct {
			Name string `yaml:"name"`
		} `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	name := head.Policy.Name
	if v := os.Getenv("UPDOWN_POLICY"); v != "" {
		name = v
	}

	cfg := Config{Policy: portfolio.DefaultPolicyConfig(strings.ToLower(name))}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default devuelve la configuración sin archivo: defaults + variables de entorno.
func Default() (*Config, error) {
	return Parse(nil)
}

// Interval devuelve el periodo del ciclo como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Bot.IntervalSeconds * float64(time.Second))
}

// SearchBackoff devuelve la espera entre búsquedas de mercado fallidas.
func (c *Config) SearchBackoff() time.Duration {
	return time.Duration(c.Bot.SearchBackoffSeconds * float64(time.Second))
}

// APITimeout devuelve el timeout por request HTTP.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// MomentumEnabled indica si se consulta el precio spot.
func (c *Config) MomentumEnabled() bool {
	return c.Bot.UseMomentum == nil || *c.Bot.UseMomentum
}

// Validate rechaza combinaciones que el bot no puede ejecutar.
func (c *Config) Validate() error {
	var errs []error
	switch c.Bot.Asset {
	case "sol", "btc", "eth", "xrp":
	default:
		errs = append(errs, fmt.Errorf("bot.asset %q not supported", c.Bot.Asset))
	}
	if c.Bot.InitialCapital <= 0 {
		errs = append(errs, fmt.Errorf("bot.initial_capital must be positive"))
	}
	if c.Signal.Threshold < 0 || c.Signal.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("signal.threshold must be in [0, 1)"))
	}
	if c.Signal.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("signal.window_size must be at least 1"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q invalid", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q invalid", c.Log.Format))
	}
	switch c.Policy.Name {
	case portfolio.UnderdogName, portfolio.MomentumName:
	default:
		errs = append(errs, fmt.Errorf("policy.name %q unknown", c.Policy.Name))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("UPDOWN_ASSET"); v != "" {
		cfg.Bot.Asset = v
	}
	if v := os.Getenv("UPDOWN_POLICY"); v != "" {
		cfg.Policy.Name = v
	}
	if v := os.Getenv("UPDOWN_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("UPDOWN_HTTP_ADDR"); v != "" {
		cfg.Dashboard.Addr = v
	}
	if v := os.Getenv("UPDOWN_INITIAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config.Load: UPDOWN_INITIAL_CAPITAL=%q: %w", v, err)
		}
		cfg.Bot.InitialCapital = f
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	cfg.Bot.Asset = strings.ToLower(cfg.Bot.Asset)
	if cfg.Bot.Asset == "" {
		cfg.Bot.Asset = "sol"
	}
	if cfg.Bot.IntervalSeconds <= 0 {
		cfg.Bot.IntervalSeconds = 2
	}
	if cfg.Bot.InitialCapital == 0 {
		cfg.Bot.InitialCapital = portfolio.DefaultInitialCapital
	}
	if cfg.Bot.ResolveBeforeSecs <= 0 {
		cfg.Bot.ResolveBeforeSecs = 5
	}
	if cfg.Bot.SearchBackoffSeconds <= 0 {
		cfg.Bot.SearchBackoffSeconds = 10
	}
	if cfg.Bot.BookDepth <= 0 {
		cfg.Bot.BookDepth = 15
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.BinanceBase == "" {
		cfg.API.BinanceBase = "https://api.binance.com"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 8
	}
	if cfg.API.MaxRetries <= 0 {
		cfg.API.MaxRetries = 3
	}
	if cfg.Signal.WindowSize == 0 {
		cfg.Signal.WindowSize = 12
	}
	if cfg.Signal.Threshold == 0 {
		cfg.Signal.Threshold = 0.15
	}
	if cfg.Signal.MomentumMultiplier == 0 {
		cfg.Signal.MomentumMultiplier = signal.DefaultMomentumMultiplier(cfg.Bot.Asset)
	}
	cfg.Policy.Name = strings.ToLower(cfg.Policy.Name)
	if cfg.Policy.Name == "" {
		cfg.Policy.Name = portfolio.UnderdogName
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "updown.db"
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
