package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed-processor/core/loader"
	"feed-processor/core/logger"
	"feed-processor/core/middleware/auth"
	"feed-processor/core/middleware/rayid"
	"feed-processor/feature/talos"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP admin server",
	Long:  `Starts the HTTP server exposing manual runs, state lookups, health and metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureBucket(ctx)

		app := newServer(a)

		go func() {
			a.log.Info("Starting server", zap.String("port", a.cfg.Server.Port))
			if err := app.Listen(":" + a.cfg.Server.Port); err != nil {
				a.log.Error("Server stopped", zap.Error(err))
				stop()
			}
		}()

		<-ctx.Done()
		a.log.Info("Shutting down server...")
		return app.ShutdownWithTimeout(30 * time.Second)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// newServer builds the Fiber app with middleware and every enabled feature.
func newServer(a *app) *fiber.App {
	cfg := a.cfg.Server
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	// 1. RayID (Must be first to trace everything)
	app.Use(rayid.New())

	// 2. Logging Middleware (Zap + RayID)
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(a.log, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	// 3. Auth (health stays public for load balancers)
	app.Use(auth.New(auth.Config{ApiKey: cfg.ApiKey, Public: []string{"/health"}}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{})))

	mgr := loader.NewManager()
	mgr.Register(talos.NewFeature(a.service))
	loaded, err := mgr.LoadAll(app)
	if err != nil {
		a.log.Fatal("Failed to load features", zap.Error(err))
	}
	a.log.Info("Features loaded", zap.Strings("features", loaded))
	return app
}
