// Command vaani is the main entry point for the Vaani field-collection server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/openseva/vaani/internal/catalog"
	"github.com/openseva/vaani/internal/config"
	"github.com/openseva/vaani/internal/engine"
	"github.com/openseva/vaani/internal/formcheck"
	"github.com/openseva/vaani/internal/health"
	"github.com/openseva/vaani/internal/httpapi"
	"github.com/openseva/vaani/internal/normalize/llmnorm"
	"github.com/openseva/vaani/internal/observe"
	"github.com/openseva/vaani/internal/resilience"
	"github.com/openseva/vaani/internal/submission"
	subpostgres "github.com/openseva/vaani/internal/submission/postgres"
	"github.com/openseva/vaani/internal/ticket"
	"github.com/openseva/vaani/pkg/provider/llm"
	"github.com/openseva/vaani/pkg/provider/llm/anyllm"
	"github.com/openseva/vaani/pkg/provider/stt"
	groqstt "github.com/openseva/vaani/pkg/provider/stt/groq"
	"github.com/openseva/vaani/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vaani: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vaani: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("vaani starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "vaani",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProvider, sttProvider, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Catalogs ──────────────────────────────────────────────────────────────
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		slog.Error("failed to load catalog", "err", err)
		return 1
	}
	checker, err := loadChecker(cfg.Catalog)
	if err != nil {
		slog.Error("failed to load validation issue table", "err", err)
		return 1
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	eng := buildEngine(cfg, cat, llmProvider)

	// ── Submission store ──────────────────────────────────────────────────────
	var store submission.Store
	var checkers []health.Checker
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := subpostgres.NewStore(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect submission store", "err", err)
			return 1
		}
		defer pg.Close()
		store = pg
		checkers = append(checkers, health.Checker{
			Name: "database",
			Check: func(ctx context.Context) error {
				_, err := pg.Stats(ctx)
				return err
			},
		})
		slog.Info("submission store connected", "backend", "postgres")
	} else {
		store = submission.NewMemStore()
		slog.Info("submission store running in memory")
	}

	// ── HTTP API ──────────────────────────────────────────────────────────────
	apiOpts := []httpapi.Option{
		httpapi.WithBaseURL(cfg.Server.BaseURL),
		httpapi.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if sttProvider != nil {
		apiOpts = append(apiOpts, httpapi.WithSTT(sttProvider))
	}
	handler := httpapi.New(eng, checker, store, ticket.NewRegistry(), apiOpts...)

	var serverOpts []httpapi.ServerOption
	if tls := cfg.Server.TLS; tls != nil {
		serverOpts = append(serverOpts, httpapi.WithTLSFiles(tls.CertFile, tls.KeyFile))
	}
	srv := httpapi.NewServer(listenAddr(cfg), httpapi.NewMux(handler, health.New(checkers...)), serverOpts...)

	// ── Config reload ─────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, next *config.Config) {
		applyConfigChange(config.Diff(old, next), next, logLevel, handler, llmProvider)
	})
	if err != nil {
		slog.Warn("config reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, cat)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// listenAddr returns the configured listen address or the default.
func listenAddr(cfg *config.Config) string {
	if cfg.Server.ListenAddr != "" {
		return cfg.Server.ListenAddr
	}
	return ":8080"
}

// ── Catalog loading ───────────────────────────────────────────────────────────

// loadCatalog returns the embedded catalog, or one built from the override
// files named in the config.
func loadCatalog(cc config.CatalogConfig) (*catalog.Catalog, error) {
	if cc.PromptsFile == "" && cc.MessagesFile == "" {
		return catalog.Default(), nil
	}

	// Overrides replace whole files; an unset path keeps the embedded one.
	pf := catalog.DefaultPromptFile()
	if cc.PromptsFile != "" {
		var err error
		if pf, err = catalog.LoadPromptFile(cc.PromptsFile); err != nil {
			return nil, err
		}
	}
	mf := catalog.DefaultMessageFile()
	if cc.MessagesFile != "" {
		var err error
		if mf, err = catalog.LoadMessageFile(cc.MessagesFile); err != nil {
			return nil, err
		}
	}
	return catalog.New(pf, mf)
}

// loadChecker returns the embedded issue table, or one loaded from the
// override file named in the config.
func loadChecker(cc config.CatalogConfig) (*formcheck.Checker, error) {
	if cc.IssuesFile == "" {
		return formcheck.Default(), nil
	}
	file, err := formcheck.LoadIssueFile(cc.IssuesFile)
	if err != nil {
		return nil, err
	}
	return formcheck.New(file)
}

// buildEngine assembles the response engine over cat, attaching the LLM
// normalizer when a completion provider is configured.
func buildEngine(cfg *config.Config, cat *catalog.Catalog, llmProvider llm.Provider) *engine.Engine {
	engineOpts := []engine.Option{}
	if llmProvider != nil {
		var normOpts []llmnorm.Option
		if cfg.Normalizer.Temperature > 0 {
			normOpts = append(normOpts, llmnorm.WithTemperature(cfg.Normalizer.Temperature))
		}
		if cfg.Normalizer.MaxTokens > 0 {
			normOpts = append(normOpts, llmnorm.WithMaxTokens(cfg.Normalizer.MaxTokens))
		}
		engineOpts = append(engineOpts, engine.WithNormalizer(llmnorm.New(llmProvider, normOpts...)))
	}
	return engine.New(cat, engineOpts...)
}

// ── Config reload ─────────────────────────────────────────────────────────────

// applyConfigChange applies the hot-reloadable parts of a config change (log
// level, catalog files, normalizer tuning) and reports everything else as
// needing a restart. A rejected catalog keeps the current one.
func applyConfigChange(d config.ConfigDiff, next *config.Config, logLevel *slog.LevelVar, handler *httpapi.Handler, llmProvider llm.Provider) {
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.CatalogChanged || d.NormalizerChanged {
		cat, err := loadCatalog(next.Catalog)
		if err != nil {
			slog.Error("config reload: catalog rejected, keeping current", "err", err)
			return
		}
		checker, err := loadChecker(next.Catalog)
		if err != nil {
			slog.Error("config reload: issue table rejected, keeping current", "err", err)
			return
		}
		handler.SwapCore(buildEngine(next, cat, llmProvider), checker)
		slog.Info("catalog and normalizer settings reloaded")
	}
	if d.RestartRequired {
		slog.Warn("provider, storage, or server settings changed; restart to apply")
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyLLMProviders lists the LLM backends served through the any-llm adapter.
// ollama is registered separately: it is a local server selected by BaseURL
// rather than an API key.
var anyLLMProviders = []string{
	"openai", "anthropic", "gemini",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	for _, providerName := range anyLLMProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("groq", func(entry config.ProviderEntry) (stt.Provider, error) {
		opts := []groqstt.Option{groqstt.WithAPIKey(entry.APIKey)}
		if entry.Model != "" {
			opts = append(opts, groqstt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, groqstt.WithBaseURL(entry.BaseURL))
		}
		return groqstt.New(opts...)
	})
}

// buildProviders instantiates the configured LLM and STT chains. Each chain
// becomes a single provider value: the primary wrapped in a circuit-breaking
// fallback group when fallbacks are configured. A nil return for either slot
// means that stage is not configured and the pipeline degrades gracefully.
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Provider, stt.Provider, error) {
	var llmProvider llm.Provider
	if name := cfg.Providers.LLM.Name; name != "" {
		primary, err := reg.CreateLLM(cfg.Providers.LLM.ProviderEntry)
		if err != nil {
			return nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		llmProvider = primary
		slog.Info("provider created", "kind", "llm", "name", name)

		if len(cfg.Providers.LLM.Fallbacks) > 0 {
			group := resilience.NewLLMFallback(primary, name, resilience.FallbackConfig{})
			for _, fb := range cfg.Providers.LLM.Fallbacks {
				p, err := reg.CreateLLM(fb)
				if err != nil {
					return nil, nil, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
				}
				group.AddFallback(fb.Name, p)
				slog.Info("provider created", "kind", "llm", "name", fb.Name, "role", "fallback")
			}
			llmProvider = group
		}
	}

	var sttProvider stt.Provider
	if name := cfg.Providers.STT.Name; name != "" {
		primary, err := reg.CreateSTT(cfg.Providers.STT.ProviderEntry)
		if err != nil {
			return nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		sttProvider = primary
		slog.Info("provider created", "kind", "stt", "name", name)

		if len(cfg.Providers.STT.Fallbacks) > 0 {
			group := resilience.NewSTTFallback(primary, name, resilience.FallbackConfig{})
			for _, fb := range cfg.Providers.STT.Fallbacks {
				p, err := reg.CreateSTT(fb)
				if err != nil {
					return nil, nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
				}
				group.AddFallback(fb.Name, p)
				slog.Info("provider created", "kind", "stt", "name", fb.Name, "role", "fallback")
			}
			sttProvider = group
		}
	}

	return llmProvider, sttProvider, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, cat *catalog.Catalog) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Vaani — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	storage := "memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	fmt.Printf("║  Storage         : %-19s ║\n", storage)
	fmt.Printf("║  Languages       : %-19d ║\n", len(cat.Languages()))
	fmt.Printf("║  Listen addr     : %-19s ║\n", listenAddr(cfg))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
