package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"talkbridge/internal/config"
	"talkbridge/internal/relay"
	"talkbridge/internal/sendbird"
	"talkbridge/internal/talktalk"
	"talkbridge/internal/webhook"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "talkbridge",
		Short: "TalkBridge: Naver TalkTalk to Sendbird message relay",
		Long: "TalkBridge relays TalkTalk user messages into Sendbird bot conversations\n" +
			"and delivers the bot's replies back, deduplicating webhook redeliveries\n" +
			"and suppressing message echoes along the way.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to optional YAML config (environment overrides it)")

	root.AddCommand(serveCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())
	root.AddCommand(daemonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay webhook server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	talk := talktalk.New(talktalk.Config{
		APIURL:  cfg.TalkTalk.APIURL,
		Token:   cfg.TalkTalk.Token,
		Timeout: cfg.RequestTimeout,
		Logger:  logger.With("component", "talktalk"),
	})
	agent := sendbird.New(sendbird.Config{
		APIURL:   cfg.Sendbird.APIURL,
		APIToken: cfg.Sendbird.APIToken,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger.With("component", "sendbird"),
	})
	engine := relay.NewEngine(relay.Config{
		Consumer:    talk,
		Agent:       agent,
		BotUserID:   cfg.BotUserID,
		CallTimeout: cfg.RequestTimeout,
		DedupWindow: cfg.DedupWindow,
		Logger:      logger.With("component", "relay"),
	})
	server := webhook.NewServer(webhook.ServerConfig{
		Addr:    cfg.ListenAddr,
		Relay:   engine,
		Logger:  logger.With("component", "webhook"),
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("talkbridge starting", "version", version, "addr", cfg.ListenAddr, "bot", cfg.BotUserID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		engine.Run(gctx)
		return nil
	})
	return g.Wait()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("talkbridge v%s\n", version)
		},
	}
}
