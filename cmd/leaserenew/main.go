// Command leaserenew keeps a hosted game server lease active by clicking its
// dashboard's renew button every five minutes from a headless Chrome.
package main

import (
	"context"
	"errors"
	"github.com/jarylc/go-leaserenew"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	log.SetOutput(os.Stdout)

	cfg, err := leaserenew.LoadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Error loading configuration: %s", err)
	}
	locators, err := leaserenew.LoadLocators(cfg.LocatorsFile)
	if err != nil {
		log.Fatalf("Error loading locators: %s", err)
	}

	log.Print("Server renewal bot starting")
	log.Printf("Username: %s", cfg.Username)
	log.Printf("Server URL: %s", cfg.ServerURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := leaserenew.NewMetrics()
	session := leaserenew.NewSession(leaserenew.ChromeLauncher(leaserenew.ChromeOptions{
		DebugAddr:  cfg.ChromeAddr,
		ExecPath:   cfg.ChromePath,
		Undetected: cfg.Undetected,
	}))

	auth := leaserenew.NewAuthenticator(cfg.LoginURL, cfg.Username, cfg.Password)
	auth.Locators = locators
	auth.Metrics = metrics

	renewer := leaserenew.NewRenewer(cfg.ServerURL, auth)
	renewer.Locators = locators
	renewer.FallbackClick = cfg.FallbackClick

	scheduler := leaserenew.NewScheduler(session, renewer)
	scheduler.Metrics = metrics

	g, ctx := errgroup.WithContext(ctx)
	if cfg.ConsoleAddr != "" {
		console := leaserenew.NewConsole(cfg.ConsoleAddr, cfg.ChromeAddr, session, metrics)
		auth.OnCaptcha = console.NotifyCaptcha
		g.Go(func() error {
			// the bot keeps renewing without its console
			if err := console.Run(ctx); err != nil {
				log.Printf("Error running console: %s", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	log.Print("Bot is running, renewing every 5 minutes. Press Ctrl+C to stop.")
	err = g.Wait()
	session.Release()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Bot stopped: %s", err)
	}
	log.Print("Bot stopped")
}
