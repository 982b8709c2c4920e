package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"github.com/penguinvovan/cloudflare-dns/internal/admin"
	"github.com/penguinvovan/cloudflare-dns/internal/cloudflare"
	"github.com/penguinvovan/cloudflare-dns/internal/config"
	"github.com/penguinvovan/cloudflare-dns/internal/failover"
	"github.com/penguinvovan/cloudflare-dns/internal/probe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "config filepath")
	testMode := flag.Bool("test", false,
		"run one check cycle, print status, and exit")
	statusMode := flag.Bool("status", false, "print status and exit")
	flag.Parse()

	conf, err := config.ParseConfig(*configPath)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	log := newLogger(conf.Log)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cloudflare.New(cloudflare.Params{
		APIToken: conf.Cloudflare.APIToken,
		ZoneID:   conf.Cloudflare.ZoneID,
	})
	prober := probe.New(probe.Method(conf.Monitoring.CheckMethod),
		conf.Monitoring.HTTPCheckPath, conf.ProbeTimeout())
	engine, err := failover.NewEngine(ctx, failover.EngineOpts{
		Log:              log,
		Store:            store,
		Prober:           prober,
		Servers:          conf.ServerSpecs(),
		Domain:           conf.Cloudflare.DomainName,
		RecordType:       conf.DNS.RecordType,
		TTL:              conf.DNS.TTL,
		FailureThreshold: conf.Monitoring.FailureThreshold,
	})
	if err != nil {
		return fmt.Errorf("new engine: %w", err)
	}

	if *testMode || *statusMode {
		if *testMode {
			if err := engine.Cycle(ctx); err != nil {
				log.Error("cycle", slog.Any("error", err))
			}
		}
		return printStatus(ctx, engine)
	}

	server := failover.NewServer(failover.ServerOpts{
		Log:            log,
		Engine:         engine,
		CheckInterval:  conf.CheckInterval(),
		StatusInterval: 5 * time.Minute,
	})
	if conf.Admin.Addr != "" {
		rt := admin.NewRouter(admin.RouterOpts{Engine: engine})
		server.Add(admin.NewServer(
			log.With(slog.String("task", "admin")),
			conf.Admin.Addr, rt))
	}

	log.Info("service starting",
		slog.String("domain", conf.Cloudflare.DomainName),
		slog.String("checkInterval", conf.CheckInterval().String()))
	err = server.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("service stopped")
		return nil
	}
	return err
}

func newLogger(conf config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	if conf.Level == config.LogLevelDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch conf.Format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func printStatus(ctx context.Context, engine *failover.Engine) error {
	snap := engine.Status(ctx)
	byt, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Println(string(byt))
	return nil
}
