package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"leadbot/internal/infrastructure"
	httpapi "leadbot/internal/interfaces/http"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and channel bots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// One limiter for HTTP clients, one for channel senders.
		clientLimiter := infrastructure.NewMessageRateLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst)
		senderLimiter := infrastructure.NewMessageRateLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst)
		a.Service.SetRateLimiter(senderLimiter)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { clientLimiter.Run(gctx, time.Minute); return nil })
		g.Go(func() error { senderLimiter.Run(gctx, time.Minute); return nil })

		wa := infrastructure.NewWhatsAppManager(cfg.WhatsApp.DevicesDir, a.Service)
		g.Go(func() error { return wa.Run(gctx, cfg.WhatsApp.Tenants) })

		deps := httpapi.Deps{
			Pipeline:    a.Service,
			Usage:       a.Usage,
			WhatsApp:    wa,
			Tenants:     a.Tenants,
			RateLimits:  clientLimiter,
			VerifyToken: cfg.Meta.VerifyToken,
		}
		if len(cfg.Telegram.Bots) > 0 {
			tg := infrastructure.NewTelegramBotManager(a.Service, a.Tenants)
			deps.Telegram = tg
			g.Go(func() error { return tg.Run(gctx, cfg.Telegram.Bots) })
		}
		if graph := infrastructure.NewWhatsAppBusinessClient(cfg.Meta); graph != nil {
			deps.GraphSender = graph
		} else {
			zap.L().Info("graph sender not configured, meta webhook replies are not delivered")
		}

		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		httpapi.SetupRoutes(r, httpapi.NewHandler(deps), httpapi.NewMiddleware(clientLimiter, cfg.Server.AllowOrigins), cfg.Server.MaxBodyBytes)

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			zap.L().Info("starting server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
