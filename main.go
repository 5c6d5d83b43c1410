package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	config "github.com/Keoroanthony/go-dairydelight/configs"
	"github.com/Keoroanthony/go-dairydelight/internal/auth"
	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/catalog"
	"github.com/Keoroanthony/go-dairydelight/internal/db"
	"github.com/Keoroanthony/go-dairydelight/internal/handlers"
	"github.com/Keoroanthony/go-dairydelight/internal/logger"
	"github.com/Keoroanthony/go-dairydelight/internal/metrics"
	"github.com/Keoroanthony/go-dairydelight/internal/notifier"
	"github.com/Keoroanthony/go-dairydelight/internal/orders"
	"github.com/Keoroanthony/go-dairydelight/internal/reviews"
)

const serviceName = "dairydelight"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "DairyDelight storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, toml or json)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the notification dispatcher",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  runMigrate,
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}
	if err := db.Init(cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	_, err := bootstrap()
	return err
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	carts, closeCarts, err := cartStores(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeCarts()

	dispatcher, closeNotifier, err := notifications(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()
	go dispatcher.Start(ctx)

	opts := orders.Options{SMS: cfg.SMS.Enabled}
	if cfg.Kafka.Enabled {
		opts.KafkaTopic = cfg.Kafka.OrderTopic
	}

	if err := auth.Init(ctx, cfg.OIDC); err != nil {
		return err
	}

	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(sessions.Sessions(auth.SessionName, cookie.NewStore([]byte(cfg.Server.SessionSecret))))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())
	r.GET("/auth/login", auth.Login)
	r.GET("/auth/callback", auth.Callback)
	r.POST("/auth/logout", auth.Logout)

	handlers.Register(r, handlers.Deps{
		Catalog: catalog.NewEngine(db.DB),
		Orders:  orders.NewService(db.DB, dispatcher, opts),
		Reviews: reviews.NewService(db.DB),
		Carts:   carts,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// cartStores falls back to in-process carts when no Redis address is set.
func cartStores(ctx context.Context, cfg config.RedisConfig) (cart.StoreFunc, func(), error) {
	if cfg.Addr == "" {
		slog.Warn("redis address not set, carts are kept in memory")
		return cart.NewMemoryStores().Func(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return cart.RedisStores(client, cfg.CartTTL), func() { _ = client.Close() }, nil
}

func notifications(ctx context.Context, cfg *config.Config) (*notifier.Dispatcher, func(), error) {
	dispatcher := notifier.NewDispatcher(db.DB, cfg.Notifications)
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Email.SenderEmail != "" {
		sender, err := notifier.NewSESSender(ctx, cfg.Email)
		if err != nil {
			return nil, nil, err
		}
		dispatcher.Register(notifier.ChannelEmail, notifier.EmailDeliverer{Sender: sender})
	} else {
		slog.Warn("no sender address configured, e-mail notifications will fail")
	}

	if cfg.SMS.Enabled {
		dispatcher.Register(notifier.ChannelSMS, notifier.SMSDeliverer{Sender: notifier.NewAfricasTalking(cfg.SMS, nil)})
	}

	if cfg.Kafka.Enabled {
		publisher, err := notifier.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			return nil, nil, err
		}
		dispatcher.Register(notifier.ChannelKafka, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				slog.Error("failed to close kafka writer", "error", err)
			}
		})
	}

	return dispatcher, closeAll, nil
}
