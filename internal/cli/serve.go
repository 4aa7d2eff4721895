package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault/internal/auth"
	"github.com/taskvault/taskvault/internal/cache"
	"github.com/taskvault/taskvault/internal/llm"
	"github.com/taskvault/taskvault/internal/logger"
	"github.com/taskvault/taskvault/internal/server"
	"github.com/taskvault/taskvault/internal/store"
	"github.com/taskvault/taskvault/internal/tasks"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the taskvault HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.CLI()

	if config.Database.URL == "" {
		return fmt.Errorf("no database URL configured (set database.url, DATABASE_URL, or --url)")
	}
	if config.Auth.Secret == "" {
		return fmt.Errorf("no auth secret configured (set auth.secret or TASKVAULT_SECRET)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	db, err := store.Open(ctx, config.Database.URL, config.Database.MaxConnections)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	if config.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		err := store.InitSchema(ctx, db)
		cancel()
		if err != nil {
			return err
		}
	}

	gin.SetMode(ginMode(config.Server.Mode))

	readCache := cache.New()
	defer readCache.Clear()

	invalidator := cache.NewInvalidator(readCache)
	taskSvc := tasks.NewService(db, invalidator)
	authSvc := auth.NewProvider(db, config.Auth.Secret, time.Duration(config.Auth.TokenTTLMinutes)*time.Minute)

	var llmOpts []llm.Option
	if config.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(config.LLM.BaseURL))
	}
	if config.LLM.Model != "" {
		llmOpts = append(llmOpts, llm.WithModel(config.LLM.Model))
	}
	generator := llm.NewClient(config.LLM.APIKey, llmOpts...)

	srv := server.New(taskSvc, authSvc, generator,
		readCache, time.Duration(config.Cache.TTLSeconds)*time.Second)

	addr := config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return httpSrv.Shutdown(shutdownCtx)
}

func ginMode(mode string) string {
	switch mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
