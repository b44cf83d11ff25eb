package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/config"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/conversation"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/handlers"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/inbound"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/line"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/logger"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/menu"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/server"
	"github.com/geekfeedjapan/twilio-flex-conversations-adapters/internal/twilio"
)

// configFile is the TOML path handed to provideConfig.
type configFile string

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(appOptions(configFile(resolveConfigPath()))...)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func appOptions(path configFile) []fx.Option {
	return []fx.Option{
		fx.Supply(path),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideMenuResolver,
			provideLineClient,
			providePlatform,
			provideProvisioner,
			provideRelay,
			provideEventCache,
			provideRouter,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideLineWebhookHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	}
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig(path configFile) (config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideMenuResolver(log *slog.Logger, cfg config.Config) (*menu.Resolver, error) {
	m, err := menu.LoadFile(cfg.Menu.Path, cfg.Menu.Vars())
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	log.Info("menu loaded",
		slog.Int("escalate", len(m.Escalate)),
		slog.Int("message", len(m.Message)),
		slog.Int("postback", len(m.Postback)),
	)
	return menu.NewResolver(m), nil
}

func provideLineClient(log *slog.Logger, cfg config.Config) *line.Client {
	return line.NewClient(log, cfg.Line.ChannelAccessToken, cfg.Line.APIBase, cfg.Line.DataAPIBase, cfg.HTTP.Timeout())
}

func providePlatform(log *slog.Logger, cfg config.Config) conversation.Platform {
	return twilio.New(log, twilio.Config{
		AccountSID:       cfg.Twilio.AccountSID,
		AuthToken:        cfg.Twilio.AuthToken,
		MediaServiceBase: cfg.Twilio.MediaServiceBase,
		Timeout:          cfg.HTTP.Timeout(),
	})
}

func provideProvisioner(log *slog.Logger, platform conversation.Platform, cfg config.Config) *conversation.Provisioner {
	return conversation.NewProvisioner(log, platform, conversation.ProvisionerConfig{
		StudioFlowSID: cfg.Twilio.StudioFlowSID,
		WebhookDomain: cfg.Twilio.WebhookDomain(),
		OutgoingPath:  cfg.Twilio.OutgoingPath,
	})
}

func provideRelay(log *slog.Logger, platform conversation.Platform, client *line.Client) *conversation.Relay {
	return conversation.NewRelay(log, platform, client)
}

func provideEventCache(cfg config.Config) *inbound.EventCache {
	return inbound.NewEventCache(cfg.Dedupe.TTL(), cfg.Dedupe.Size())
}

type routerParams struct {
	fx.In
	Logger      *slog.Logger
	Config      config.Config
	Resolver    *menu.Resolver
	Client      *line.Client
	Provisioner *conversation.Provisioner
	Relay       *conversation.Relay
	Seen        *inbound.EventCache
}

func provideRouter(params routerParams) *inbound.Router {
	return inbound.NewRouter(params.Logger, inbound.Deps{
		ChannelSecret: params.Config.Line.ChannelSecret,
		Resolver:      params.Resolver,
		Pusher:        params.Client,
		Profiles:      params.Client,
		Provisioner:   params.Provisioner,
		Relayer:       params.Relay,
		Seen:          params.Seen,
	})
}

func provideLineWebhookHandler(log *slog.Logger, router *inbound.Router) *handlers.LineWebhookHandler {
	return handlers.NewLineWebhookHandler(log, router)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
