package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppla/gallery/config"
	"github.com/cppla/gallery/models"
	"github.com/cppla/gallery/routes"
	"github.com/cppla/gallery/services"
	"github.com/cppla/gallery/storage"
	"github.com/cppla/gallery/utils"
)

func main() {
	root := &cobra.Command{
		Use:          "gallery",
		Short:        "Image gallery backend",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Remove uploaded files no gallery references, then exit",
			RunE:  runSweep,
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, svc, store, err := bootstrap(context.Background())
	if err != nil {
		return err
	}

	utils.InitRedis(cfg)

	sweepCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Start background cleanup for orphaned uploads (best-effort)
	utils.StartUploadCleaner(sweepCtx, time.Duration(cfg.OrphanSweepMinutes)*time.Minute, svc.SweepOrphans)

	r := routes.SetupRouter(cfg, svc, store)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	readTimeout := time.Duration(cfg.ReadTimeoutSec) * time.Second
	writeTimeout := time.Duration(cfg.WriteTimeoutSec) * time.Second
	if err := utils.GraceServer(":"+cfg.AppPort, r, readTimeout, writeTimeout); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
		return err
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	_, svc, _, err := bootstrap(context.Background())
	if err != nil {
		return err
	}
	removed, err := svc.SweepOrphans(context.Background())
	if err != nil {
		utils.Sugar.Errorf("sweep failed: %v", err)
		return err
	}
	utils.Sugar.Infof("sweep removed %d orphaned files", removed)
	return nil
}

func bootstrap(ctx context.Context) (config.AppConfig, *services.GalleryService, storage.Store, error) {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, nil, err
	}

	db := config.InitDatabase(&models.Gallery{})

	store, err := openStore(ctx, cfg)
	if err != nil {
		utils.Sugar.Errorf("failed to open file store: %v", err)
		return cfg, nil, nil, err
	}

	svc := services.NewGalleryService(db, store, services.Options{
		URLPrefix:      cfg.UploadURLPrefix,
		MaxUploadBytes: cfg.UploadMaxBytes,
		OrphanGrace:    time.Duration(cfg.OrphanGraceMinutes) * time.Minute,
		List: services.ListDefaults{
			Limit:  cfg.GalleryDefaultLimit,
			Max:    cfg.GalleryMaxLimit,
			Status: cfg.GalleryDefaultStatus,
		},
	})
	if n, err := svc.BackfillFoldedTitles(ctx); err != nil {
		utils.Sugar.Warnf("failed to fold gallery titles: %v", err)
	} else if n > 0 {
		utils.Sugar.Infof("folded %d gallery titles for search", n)
	}
	return cfg, svc, store, nil
}

func openStore(ctx context.Context, cfg config.AppConfig) (storage.Store, error) {
	if strings.EqualFold(cfg.StorageBackend, "s3") {
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
