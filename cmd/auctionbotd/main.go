package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"auctionbot/agent/internal/config"
	"auctionbot/agent/internal/decision"
	"auctionbot/agent/internal/executor"
	"auctionbot/agent/internal/keys"
	"auctionbot/agent/internal/llm"
	"auctionbot/agent/internal/logging"
	"auctionbot/agent/internal/market"
	"auctionbot/agent/internal/policy"
	"auctionbot/agent/internal/runtime"
	"auctionbot/agent/internal/status"
	"auctionbot/agent/internal/store"
)

func main() {
	sdkCfg := sdk.GetConfig()
	sdkCfg.SetBech32PrefixForAccount("auction", "auctionpub")
	sdkCfg.Seal()

	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		if err := cmdInit(); err != nil {
			fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
			os.Exit(1)
		}
	case "run":
		if err := cmdRun(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := cmdStatus(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			os.Exit(1)
		}
	case "check":
		if err := cmdCheck(); err != nil {
			fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("auctionbotd init | run | status | check")
}

func cmdInit() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	cfgPath := config.Path(home)
	cfg := config.Default(home)
	if existing, err := config.Load(cfgPath); err == nil {
		cfg = existing
	}
	if err := os.MkdirAll(cfg.Bot.KeyStore, 0o700); err != nil {
		return err
	}

	botKey, created, err := keys.EnsureKey(keys.DefaultBotKeyPath(cfg.Bot.KeyStore), "bot")
	if err != nil {
		return err
	}
	if err := config.Write(cfgPath, cfg); err != nil {
		return err
	}

	fmt.Printf("initialized %s\n", cfgPath)
	fmt.Printf("bot address: %s\n", botKey.Address)
	if created {
		fmt.Printf("key stored in %s\n", cfg.Bot.KeyStore)
	}
	if strings.TrimSpace(cfg.Marketplace.AccountID) == "" {
		fmt.Println("set marketplace.account_id (or BOT_ACCOUNT_ID) before running")
	}
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	accountID := fs.String("account-id", "", "marketplace account to list for")
	noStatus := fs.Bool("no-status", false, "disable the status server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfgPath, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(*accountID); v != "" {
		cfg.Marketplace.AccountID = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel())
	defer func() { _ = log.Sync() }()

	llmClient, err := llm.New(llmConfig(cfg))
	if err != nil {
		return err
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		return err
	}
	mkt := market.New(cfg.Marketplace.URL, time.Duration(cfg.Marketplace.TimeoutSeconds)*time.Second, signer)

	bot := cfg.BotConfig()
	ledger := store.NewLedger(0)
	limiter := rate.NewLimiter(executor.DefaultLimit, 1)
	if cfg.Monitoring.ExecutionsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.Monitoring.ExecutionsPerMinute)/60), 1)
	}
	runner := runtime.NewRunner(cfg.Marketplace.AccountID, bot, runtime.Deps{
		Market:    mkt,
		Decider:   decision.New(llmClient, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second, log),
		Validator: policy.NewValidator(bot, log),
		Executor:  executor.New(mkt, ledger, bot, limiter, log),
		Working:   store.NewWorkingSet(),
		Ledger:    ledger,
		Log:       log,
	})
	runner.StartDelay = time.Duration(cfg.Monitoring.StartDelaySeconds) * time.Second

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("auctionbotd running",
		zap.String("account_id", cfg.Marketplace.AccountID),
		zap.String("bot_address", signer.Address()),
		zap.String("llm_provider", llmClient.Provider()),
		zap.String("llm_model", llmClient.Model()),
		zap.Bool("virtual_mode", bot.VirtualMode),
	)
	runner.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reloadOnHangup(gctx, cfgPath, runner, log)
		return nil
	})
	if !*noStatus && strings.TrimSpace(cfg.Status.Listen) != "" {
		srv := status.New(cfg.Status.Listen, runner, log)
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		runner.Stop()
		return nil
	})

	err = g.Wait()
	<-runner.Done()
	return err
}

// reloadOnHangup re-reads the config file on SIGHUP and hands the new limits
// to the runner.
func reloadOnHangup(ctx context.Context, path string, runner *runtime.Runner, log *zap.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				log.Error("config reload failed", zap.Error(err))
				continue
			}
			config.ApplyEnv(&cfg)
			if err := cfg.Validate(); err != nil {
				log.Error("reloaded config is invalid", zap.Error(err))
				continue
			}
			runner.SetConfig(cfg.BotConfig())
		}
	}
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	addr := fs.String("addr", "", "status server address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target := strings.TrimSpace(*addr)
	if target == "" {
		target = cfg.Status.Listen
	}
	if !strings.HasPrefix(target, "http") {
		target = "http://" + target
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(target, "/")+"/v1/stats", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status request failed: %s (status %d)", strings.TrimSpace(string(body)), resp.StatusCode)
	}
	var stats runtime.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return err
	}

	fmt.Println("bot status")
	fmt.Printf("  running: %t\n", stats.Running)
	fmt.Printf("  total listings: %d\n", stats.TotalListings)
	fmt.Printf("  bot listings: %d\n", stats.BotListings)
	fmt.Printf("  cached entries: %d\n", stats.CachedEntries)
	fmt.Printf("  created listings: %d\n", stats.CreatedListings)
	if !stats.LastCheck.IsZero() {
		fmt.Printf("  last check: %s\n", stats.LastCheck.Format(time.RFC3339))
	}
	return nil
}

func cmdCheck() error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	llmClient, err := llm.New(llmConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("llm provider: %s (%s)\n", llmClient.Provider(), llmClient.Model())
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.LLM.TimeoutSeconds+5)*time.Second)
	defer cancel()
	if err := decision.New(llmClient, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second, nil).Check(ctx); err != nil {
		return err
	}
	fmt.Println("llm connection ok")

	mkt := market.New(cfg.Marketplace.URL, time.Duration(cfg.Marketplace.TimeoutSeconds)*time.Second, nil)
	listings, err := mkt.ListActiveListings(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("marketplace ok: %d active listings\n", len(listings))
	return nil
}

func llmConfig(cfg config.Config) llm.Config {
	return llm.Config{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		TimeoutSeconds:  cfg.LLM.TimeoutSeconds,
	}
}

func loadSigner(cfg config.Config) (*keys.Signer, error) {
	key, err := keys.Load(keys.DefaultBotKeyPath(cfg.Bot.KeyStore))
	if err != nil {
		return nil, fmt.Errorf("bot key not found, run auctionbotd init: %w", err)
	}
	return keys.NewSigner(key)
}

func loadConfig() (string, config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", config.Config{}, err
	}
	cfgPath := config.Path(home)
	if v := strings.TrimSpace(os.Getenv("AUCTIONBOT_CONFIG")); v != "" {
		cfgPath = filepath.Clean(v)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("config not found, run auctionbotd init: %w", err)
	}
	config.ApplyEnv(&cfg)
	return cfgPath, cfg, nil
}
