package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/custodix/custodiad/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var flags = []cli.Flag{
	config.Datadir,
	config.Port,
	config.AdminPort,
	config.LogLevel,
	config.DbType,
	config.SchedulerType,
	config.LiveStoreType,
	config.RedisUrl,
	config.CollaboratorType,
	config.AnswerTimeout,
	config.MaxSuccessionDepth,
	config.WatcherInterval,
}

func main() {
	app := &cli.App{
		Name:   "custodiad",
		Usage:  "custodial wrap & escrow daemon",
		Flags:  flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	svc, err := cfg.AppService()
	if err != nil {
		log.Fatalf("failed to create service: %s", err)
	}

	log.Infof("custodiad config: %+v", cfg)

	watcher := cfg.TimeoutWatcher()

	log.Info("starting service...")
	if err := watcher.Start(); err != nil {
		log.Fatalf("failed to start timeout watcher: %s", err)
	}
	log.Infof("custodiad started with %s store at %s", cfg.DbType, cfg.Datadir)

	log.RegisterExitHandler(func() {
		watcher.Stop()
		svc.Stop()
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}
