package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/ad"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/admin"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/config"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/router"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/user"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/view"
	"github.com/ovaphlow/pitchfork/service-avrex/pkg/utilities"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the AVreX web server.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address")
	f.String("upload-dir", "", "directory for uploaded ad images")
	bindFlags(serveCmd, map[string]string{
		"addr":       config.KeyHTTPAddr,
		"upload-dir": config.KeyUploadDir,
	}, false)
}

func serve(parent context.Context) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	sugar := logger.Sugar()
	sugar.Info("starting avrex")

	if err := utilities.SetSnowflakeNode(cfg.SnowflakeNode); err != nil {
		sugar.Warnw("invalid snowflake node, using default", "node", cfg.SnowflakeNode, "err", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	// graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.keys.Initialize(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		metrics.RecordKeysGenerated(n)
		sugar.Infow("seeded access keys", "count", n)
	}

	views, err := view.New()
	if err != nil {
		return err
	}
	handler := router.RegisterRoutes(router.Deps{
		Logger:    sugar,
		Sessions:  svc.sessions,
		Users:     user.NewHandler(svc.users, svc.ledger, svc.sessions, views, sugar),
		Keys:      accesskey.NewHandler(svc.keys, sugar),
		Ads:       ad.NewHandler(svc.ads, svc.ledger, views, sugar),
		Admin:     admin.NewHandler(svc.users, svc.keys, views, sugar),
		Limiter:   router.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst, sugar),
		UploadDir: cfg.UploadDir,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
	return nil
}
