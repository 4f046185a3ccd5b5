// Command chainsaw runs one hunt: load rules and a mapping file, stream
// records through the hunter, group matches by rule, and write them to
// the configured sink. Argument parsing is intentionally minimal (a
// config path plus a handful of overrides) — a full flag surface
// (progress bars, table/CSV formatting) is out of scope, left to an
// external CLI layer.
//
// Grounded on cmd/threatgraph/main.go's findConfigFile/applyDefaults/
// signal-driven shutdown shape.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"chainsaw/config"
	"chainsaw/internal/grouper"
	"chainsaw/internal/hunter"
	"chainsaw/internal/loader"
	"chainsaw/internal/logger"
	"chainsaw/internal/output/detectionjson"
	"chainsaw/internal/source/jsonl"
	sourceredis "chainsaw/internal/source/redis"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat("chainsaw.yml"); err == nil {
		return "chainsaw.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "chainsaw.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "chainsaw.yml"
}

func runHunt(args []string) int {
	fs := flag.NewFlagSet("hunt", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to chainsaw.yml")
	rulesDir := fs.String("rules", "", "Rule directory (overrides config)")
	mappingFile := fs.String("mapping", "", "Mapping file (overrides config)")
	evtxPath := fs.String("evtx", "", "JSONL file of decoded records (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := findConfigFile(*configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Failed to load config at %s, using defaults: %v", configPath, err)
		cfg = &config.Config{}
	}
	config.ApplyDefaults(cfg)

	if *rulesDir != "" {
		cfg.Chainsaw.Rules.Dirs = []string{*rulesDir}
	}
	if *mappingFile != "" {
		cfg.Chainsaw.Rules.Mapping = []string{*mappingFile}
	}
	if *evtxPath != "" {
		cfg.Chainsaw.Source.EVTX.Paths = []string{*evtxPath}
	}

	if err := logger.Init(cfg.Chainsaw.Logging.Enabled, cfg.Chainsaw.Logging.Level, cfg.Chainsaw.Logging.File, cfg.Chainsaw.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Infof("chainsaw starting")
	logger.Infof("Config loaded from: %s", configPath)

	result, err := loader.Load(loader.Options{
		RuleDirs:              cfg.Chainsaw.Rules.Dirs,
		MappingFiles:          cfg.Chainsaw.Rules.Mapping,
		Levels:                cfg.Chainsaw.Rules.Levels,
		Statuses:              cfg.Chainsaw.Rules.Statuses,
		Kinds:                 cfg.Chainsaw.Rules.Kinds,
		Exclusions:            cfg.Chainsaw.Rules.Exclusions,
		AllowDefaultAdmission: cfg.Chainsaw.Rules.AllowAdmit,
	})
	if err != nil {
		logger.Errorf("Failed to load rules: %v", err)
		log.Fatalf("Failed to load rules: %v", err)
	}
	for _, d := range result.Diagnostics {
		logger.Warnf("rule diagnostic: %s", d.String())
	}
	logger.Infof("Rules loaded: %d (diagnostics: %d)", len(result.Rules), len(result.Diagnostics))

	var sources []hunter.RecordSource
	switch cfg.Chainsaw.Source.Kind {
	case "redis":
		src, err := sourceredis.New(sourceredis.Config{
			Addr:         cfg.Chainsaw.Source.Redis.Addr,
			Password:     cfg.Chainsaw.Source.Redis.Password,
			DB:           cfg.Chainsaw.Source.Redis.DB,
			Key:          cfg.Chainsaw.Source.Redis.Key,
			BlockTimeout: cfg.Chainsaw.Source.Redis.BlockTimeout,
		})
		if err != nil {
			logger.Errorf("Failed to create Redis source: %v", err)
			log.Fatalf("Failed to create Redis source: %v", err)
		}
		sources = append(sources, src)
	default:
		for _, path := range cfg.Chainsaw.Source.EVTX.Paths {
			src, err := jsonl.Open(path)
			if err != nil {
				logger.Errorf("Failed to open record source %s: %v", path, err)
				log.Fatalf("Failed to open record source %s: %v", path, err)
			}
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		log.Fatalf("No record sources configured (set chainsaw.source.evtx.paths or chainsaw.source.kind: redis)")
	}
	defer func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}()

	var sink grouper.Sink
	switch cfg.Chainsaw.Output.Mode {
	case "file", "":
		w, err := detectionjson.NewWriter(cfg.Chainsaw.Output.File.Path)
		if err != nil {
			logger.Errorf("Failed to create detection writer: %v", err)
			log.Fatalf("Failed to create detection writer: %v", err)
		}
		sink = w
	default:
		log.Fatalf("Unknown output mode: %s", cfg.Chainsaw.Output.Mode)
	}

	g := grouper.New(sink)
	h := hunter.New(result.Rules, hunter.Options{
		Workers:    cfg.Chainsaw.Hunt.Workers,
		From:       cfg.Chainsaw.Hunt.From,
		To:         cfg.Chainsaw.Hunt.To,
		SkipErrors: cfg.Chainsaw.Hunt.SkipErrors,
		Metrics:    hunter.NewMetrics(nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("Shutting down")
		cancel()
	}()

	runErr := h.Run(ctx, sources, g.Add)
	if runErr != nil {
		logger.Errorf("Hunt error: %v", runErr)
	}

	if err := g.Flush(); err != nil {
		logger.Errorf("Failed to flush detections: %v", err)
	}
	if err := g.Close(); err != nil {
		logger.Errorf("Failed to close output sink: %v", err)
	}

	logger.Infof("chainsaw stopped")
	if runErr != nil {
		return 1
	}
	return 0
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hunt" {
		os.Exit(runHunt(os.Args[2:]))
	}
	os.Exit(runHunt(os.Args[1:]))
}
