package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsync/core/config"
	"docsync/core/database"
	"docsync/core/loader"
	"docsync/core/logger"
	"docsync/core/middleware/auth"
	"docsync/core/middleware/rayid"
	"docsync/core/storage"
	syncengine "docsync/core/sync"
	"docsync/feature/docstore"
	"docsync/feature/syncapi"
	"docsync/feature/tablesource"
	"docsync/feature/verify"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync API server",
	Long:  `Starts the HTTP server exposing sync runs, previews and strategy listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		// 4. Initialize Storage
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		// 5. Wire the sync service
		store := docstore.NewStore(db, logg)
		if err := store.Migrate(); err != nil {
			logg.Fatal("Failed to migrate documents table", zap.Error(err))
		}

		sourceCfg := cfg.Source
		sourceCfg.PrimaryKeyField = cfg.Sync.PrimaryKeyField
		var reader syncengine.Reader = tablesource.NewReader(client, cfg.Storage.Bucket, sourceCfg, logg)
		if sourceCfg.CacheTTLSeconds > 0 {
			reader = tablesource.NewCachedReader(reader, time.Duration(sourceCfg.CacheTTLSeconds)*time.Second)
		}

		service := syncapi.NewService(reader, store, cfg.Sync, logg)
		verifyService := verify.NewService(db, store, cfg.Sync.ExcludeSet(), logg)

		// 6. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(syncapi.NewFeature(service))
		mgr.Register(verify.NewFeature(verifyService))

		// 7. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			// Log error if happened
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Health check (Public)
		app.Get("/healthz", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})

		// 4. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
