package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"auctionbot/agent/internal/auction"
	"auctionbot/agent/internal/items"
)

type Config struct {
	LLM struct {
		Provider        string  `yaml:"provider"`
		Model           string  `yaml:"model"`
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"api_key"`
		Temperature     float64 `yaml:"temperature"`
		MaxOutputTokens int     `yaml:"max_output_tokens"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Bot struct {
		Budget          float64  `yaml:"budget"`
		MinProfitMargin float64  `yaml:"min_profit_margin"`
		VirtualMode     bool     `yaml:"virtual_mode"`
		AvailableItems  []string `yaml:"available_items"`
		MaxListings     int      `yaml:"max_listings_per_item"`
		KeyStore        string   `yaml:"key_store"`
	} `yaml:"bot"`
	Monitoring struct {
		IntervalMinutes     int  `yaml:"interval_minutes"`
		StartDelaySeconds   int  `yaml:"start_delay_seconds"`
		DataRetentionHours  int  `yaml:"data_retention_hours"`
		Debug               bool `yaml:"debug"`
		ExecutionsPerMinute int  `yaml:"executions_per_minute"`
	} `yaml:"monitoring"`
	Auction struct {
		MaxPrice      float64 `yaml:"max_price"`
		MaxQuantity   int     `yaml:"max_quantity"`
		DurationHours int     `yaml:"duration_hours"`
		AllowBidding  bool    `yaml:"allow_bidding"`
	} `yaml:"auction"`
	Marketplace struct {
		URL            string `yaml:"url"`
		AccountID      string `yaml:"account_id"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"marketplace"`
	Status struct {
		Listen string `yaml:"listen"`
	} `yaml:"status"`
}

func Default(home string) Config {
	cfg := Config{}
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-3.5-turbo"
	cfg.LLM.BaseURL = ""
	cfg.LLM.APIKey = ""
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxOutputTokens = 1000
	cfg.LLM.TimeoutSeconds = 30
	cfg.Bot.Budget = 10000
	cfg.Bot.MinProfitMargin = 15
	cfg.Bot.VirtualMode = true
	cfg.Bot.AvailableItems = []string{"DIAMOND", "EMERALD", "GOLD_INGOT", "IRON_INGOT", "WHEAT", "OAK_LOG", "COBBLESTONE"}
	cfg.Bot.MaxListings = 2
	cfg.Bot.KeyStore = filepath.Join(home, ".auctionbot", "keys")
	cfg.Monitoring.IntervalMinutes = 30
	cfg.Monitoring.StartDelaySeconds = 10
	cfg.Monitoring.DataRetentionHours = 24
	cfg.Monitoring.Debug = false
	cfg.Monitoring.ExecutionsPerMinute = 1
	cfg.Auction.MaxPrice = 5000
	cfg.Auction.MaxQuantity = 64
	cfg.Auction.DurationHours = 24
	cfg.Auction.AllowBidding = true
	cfg.Marketplace.URL = "http://localhost:8080"
	cfg.Marketplace.AccountID = ""
	cfg.Marketplace.TimeoutSeconds = 10
	cfg.Status.Listen = "127.0.0.1:9464"
	return cfg
}

// Load reads path on top of the defaults, so keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	home, _ := os.UserHomeDir()
	cfg := Default(home)
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func Path(home string) string {
	return filepath.Join(home, ".auctionbot", "config.yaml")
}

// Validate reports the first setting the bot cannot run with.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Marketplace.URL) == "":
		return fmt.Errorf("marketplace.url is required")
	case strings.TrimSpace(c.Marketplace.AccountID) == "":
		return fmt.Errorf("marketplace.account_id is required")
	case c.Bot.MaxListings <= 0:
		return fmt.Errorf("bot.max_listings_per_item must be positive")
	case c.Auction.MaxQuantity <= 0 || c.Auction.MaxQuantity > items.MaxStack:
		return fmt.Errorf("auction.max_quantity must be in 1..%d", items.MaxStack)
	case c.Auction.MaxPrice <= 0:
		return fmt.Errorf("auction.max_price must be positive")
	case !c.Bot.VirtualMode && c.Auction.DurationHours <= 0:
		return fmt.Errorf("auction.duration_hours must be positive in standard mode")
	case c.Monitoring.IntervalMinutes <= 0:
		return fmt.Errorf("monitoring.interval_minutes must be positive")
	}
	if len(c.Bot.AvailableItems) == 0 {
		return fmt.Errorf("bot.available_items is empty")
	}
	for _, name := range c.Bot.AvailableItems {
		if _, ok := items.Resolve(name); !ok {
			return fmt.Errorf("bot.available_items: unknown item %q", name)
		}
	}
	return nil
}

// BotConfig converts the file settings into the runtime limits.
func (c Config) BotConfig() auction.BotConfig {
	allowed := make([]string, len(c.Bot.AvailableItems))
	copy(allowed, c.Bot.AvailableItems)
	return auction.BotConfig{
		Budget:             c.Bot.Budget,
		MinProfitMargin:    c.Bot.MinProfitMargin,
		VirtualMode:        c.Bot.VirtualMode,
		AllowedItems:       allowed,
		MaxListingsPerItem: c.Bot.MaxListings,
		MaxTotalPrice:      c.Auction.MaxPrice,
		MaxQuantity:        c.Auction.MaxQuantity,
		AuctionDuration:    time.Duration(c.Auction.DurationHours) * time.Hour,
		AllowBidding:       c.Auction.AllowBidding,
		MonitorInterval:    time.Duration(c.Monitoring.IntervalMinutes) * time.Minute,
		Debug:              c.Monitoring.Debug,
		DataRetention:      time.Duration(c.Monitoring.DataRetentionHours) * time.Hour,
	}
}

// LogLevel is debug when monitoring.debug is set.
func (c Config) LogLevel() string {
	if c.Monitoring.Debug {
		return "debug"
	}
	return "info"
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_BASE_URL")); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_API_KEY")); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" && cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		if value, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MAX_TOKENS")); v != "" {
		if value, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxOutputTokens = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); v != "" {
		if value, err := strconv.Atoi(v); err == nil {
			cfg.LLM.TimeoutSeconds = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("MARKETPLACE_URL")); v != "" {
		cfg.Marketplace.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("BOT_ACCOUNT_ID")); v != "" {
		cfg.Marketplace.AccountID = v
	}
	if v := strings.TrimSpace(os.Getenv("BOT_VIRTUAL_MODE")); v != "" {
		if value, err := strconv.ParseBool(v); err == nil {
			cfg.Bot.VirtualMode = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("STATUS_LISTEN")); v != "" {
		cfg.Status.Listen = v
	}
}
