// dnsverify checks how far a DNS change has propagated, and can run a
// full round trip: flip the record to an alternate server, wait for
// public resolvers to agree, then restore the original record.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"github.com/penguinvovan/cloudflare-dns/internal/cloudflare"
	"github.com/penguinvovan/cloudflare-dns/internal/config"
	"github.com/penguinvovan/cloudflare-dns/internal/failover"
	"github.com/penguinvovan/cloudflare-dns/internal/verify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "config filepath")
	domain := flag.String("domain", "",
		"domain to check (defaults to the configured domain)")
	checkOnly := flag.Bool("check-only", false,
		"only report current answers, make no changes")
	maxWait := flag.Int("max-wait", 180,
		"seconds to wait for propagation in test mode")
	flag.Parse()

	conf, err := config.ParseConfig(*configPath)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := verify.NewChecker(verify.CheckerOpts{Log: log})
	target := *domain
	if target == "" {
		target = conf.Cloudflare.DomainName
	}

	if *checkOnly {
		printResults(checker.Check(ctx, target))
		return nil
	}
	return roundTrip(ctx, log, conf, checker, target,
		time.Duration(*maxWait)*time.Second)
}

// roundTrip flips the record to an alternate configured server, waits
// for propagation, and restores the original content. Restoration runs
// even when the propagation wait fails.
func roundTrip(
	ctx context.Context,
	log *slog.Logger,
	conf config.Config,
	checker *verify.Checker,
	domain string,
	maxWait time.Duration,
) error {
	store := cloudflare.New(cloudflare.Params{
		APIToken: conf.Cloudflare.APIToken,
		ZoneID:   conf.Cloudflare.ZoneID,
	})

	rec, err := store.GetRecord(ctx, domain, conf.DNS.RecordType)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	original := rec.Content
	testAddr := alternateAddr(conf, original)
	if testAddr == "" {
		return fmt.Errorf("no alternate server address to test with")
	}

	fmt.Printf("domain: %s\noriginal: %s\ntest address: %s\n\n",
		domain, original, testAddr)
	fmt.Println("current answers:")
	printResults(checker.Check(ctx, domain))

	if err := updateContent(ctx, store, rec, testAddr); err != nil {
		return fmt.Errorf("switch record: %w", err)
	}
	fmt.Printf("\nrecord updated to %s, waiting for propagation\n", testAddr)

	propagated, waitErr := checker.WaitForPropagation(ctx, domain,
		testAddr, maxWait)

	fmt.Println("\nanswers after change:")
	printResults(checker.Check(ctx, domain))

	// Always restore, even if the wait was cancelled.
	restoreCtx, cancel := context.WithTimeout(context.Background(),
		30*time.Second)
	defer cancel()
	if err := updateContent(restoreCtx, store, rec, original); err != nil {
		return fmt.Errorf("restore record (manual fix needed): %w", err)
	}
	fmt.Printf("\nrecord restored to %s\n", original)

	if waitErr != nil {
		return waitErr
	}
	if propagated {
		fmt.Println("propagation confirmed")
	} else {
		fmt.Println("propagation not confirmed within the wait window")
	}
	log.Info("round trip complete",
		slog.Bool("propagated", propagated))
	return nil
}

func updateContent(
	ctx context.Context,
	store failover.DNSStore,
	rec failover.Record,
	content string,
) error {
	rec.Content = content
	if err := store.UpdateRecord(ctx, rec); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func alternateAddr(conf config.Config, current string) string {
	for _, s := range conf.ServerSpecs() {
		if s.Addr != current {
			return s.Addr
		}
	}
	return ""
}

func printResults(results []verify.Result) {
	for _, r := range results {
		addr := r.Addr
		if addr == "" {
			addr = "error"
		}
		fmt.Printf("  %-20s %s\n", r.Source, addr)
	}
}
