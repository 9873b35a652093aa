package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finflow/internal/analytics"
	"finflow/internal/cli"
	"finflow/internal/columns"
	apphttp "finflow/internal/http"
	"finflow/internal/log"
	"finflow/internal/normalize"
	"finflow/internal/services"
	"finflow/internal/session"
	"finflow/internal/sheets"
	gsheet "finflow/internal/sheets/google"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	appLogger := logger.WithComponent(log.ComponentApp)

	ctx, stop := cli.SignalContext(appLogger)
	defer stop()

	rules := columns.DefaultRules()
	if cfg.ColumnRulesFile != "" {
		var err error
		rules, err = columns.LoadRules(cfg.ColumnRulesFile)
		if err != nil {
			appLogger.Error("Failed to load column rules", log.FieldError, err, log.FieldFile, cfg.ColumnRulesFile)
			os.Exit(1)
		}
		appLogger.Info("Column rules loaded", log.FieldFile, cfg.ColumnRulesFile)
	}

	// A nil reader keeps the Google Sheets import disabled.
	var reader sheets.TableReader
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		}, cfg.GoogleSheetsRange)
		if err != nil {
			appLogger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		reader = client
		appLogger.Info("Google Sheets import enabled")
	} else {
		appLogger.Info("Google Sheets import disabled - no service account provided")
	}

	period, err := analytics.ParseGranularity(cfg.DefaultPeriod)
	if err != nil {
		appLogger.Error("Invalid default period", log.FieldError, err)
		os.Exit(1)
	}

	store := session.NewStore(cfg.MaxSessions, cfg.SessionTTL)
	svc := services.NewDashboardService(store, rules, normalize.Options{
		MonthFirst: cfg.DateMonthFirst,
		MaxErrors:  cfg.MaxRowErrors,
	}, reader, logger)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Currency:       cfg.CurrencySymbol,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		DefaultPeriod:  period,
		TopCategories:  cfg.TopCategories,
		RateLimit:      cfg.RateLimitPerMinute,
		SheetsRange:    cfg.GoogleSheetsRange,
		TrustedProxies: cfg.TrustedProxies,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting finflow server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"max_upload_mb", cfg.MaxUploadMB,
			"sheets_import", reader != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	sessionLogger := logger.WithComponent(log.ComponentSession)
	g.Go(func() error {
		return store.Janitor(gctx, cfg.SessionCleanupInterval, func(n int) {
			sessionLogger.Info("Expired sessions removed",
				log.FieldOperation, log.OpClean,
				log.FieldSessions, n,
				"remaining", store.Size())
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	appLogger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
