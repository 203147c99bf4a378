package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"checkin-backend/config"
	"checkin-backend/controllers"
	"checkin-backend/realtime"
	"checkin-backend/routes"
	"checkin-backend/services"
	"checkin-backend/utils"
)

type importFlags struct {
	path     string
	rawSheet string
	replace  bool
	dryRun   bool
}

func main() {
	var flags importFlags
	pflag.StringVar(&flags.path, "import", "", "import an .xlsx workbook into the guest collection and exit")
	pflag.StringVar(&flags.rawSheet, "raw-sheet", services.DefaultRawSheet, "name of the sheet holding one row per order")
	pflag.BoolVar(&flags.replace, "replace", false, "overwrite guests that were already uploaded")
	pflag.BoolVar(&flags.dryRun, "dry-run", false, "parse the workbook and report without writing")
	pflag.Parse()

	cfg, dotenv, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}
	log := config.NewLogger(cfg.LogLevel, cfg.LogPretty)
	if !dotenv {
		log.Warn().Msg(".env not found or couldn't load it; continuing with environment variables")
	}

	ctx := context.Background()

	db, err := config.ConnectDatabase(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	store, err := realtime.NewGormStore(ctx, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("document store init failed")
	}

	settings, err := services.NewSettingsService(store, cfg.SettingsFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("settings load failed")
	}
	settings.Start()
	defer settings.Stop()

	guests := services.NewGuestService(store, log)
	guests.Start()
	defer guests.Stop()

	importer := services.NewImporter(log)
	if flags.path != "" {
		if err := runImport(ctx, importer, guests, flags, log); err != nil {
			log.Fatal().Err(err).Msg("import failed")
		}
		return
	}

	secret := cfg.AuthSecret
	if secret == "" {
		if secret, err = utils.GenerateSecureToken(32); err != nil {
			log.Fatal().Err(err).Msg("cannot generate session secret")
		}
		log.Warn().Msg("AUTH_SECRET not set; sessions will not survive a restart")
	}

	activity := services.NewActivityService(store, log)
	mutations := services.NewMutationApplier(guests, store, activity, settings.WaiverURL, log)
	waiverClient := services.NewWaiverClient(cfg.JotformAPIBase, settings.APIKey)
	verifier := services.NewWaiverVerifier(waiverClient, guests, mutations, settings.Get, log)

	auth := services.NewAuthService(store, services.AuthOptions{
		Secret:          secret,
		TokenTTL:        cfg.AuthTokenTTL,
		DefaultPassword: cfg.DefaultMemberPassword,
	}, log)
	if err := auth.SeedSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seeding super admin failed")
	}
	team := services.NewTeamService(store, auth, services.TeamOptions{
		SuperAdminEmail: cfg.SuperAdminEmail,
		FrontendURL:     cfg.FrontendURL,
		SMTP: utils.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			FromName: cfg.SMTPFromName,
		},
	}, log)

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(routes.Controllers{
		Auth:     controllers.NewAuthController(auth, team),
		Guests:   controllers.NewGuestController(guests, mutations, verifier),
		Reports:  controllers.NewReportController(guests),
		Admin:    controllers.NewAdminController(guests, importer, verifier),
		Team:     controllers.NewTeamController(team),
		Settings: controllers.NewSettingsController(settings),
		Activity: controllers.NewActivityController(activity),
	}, auth, team, cfg.Origins(), log)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received, shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}

// runImport is the one-time migration: parse the event workbook and
// overwrite the shared guest collection.
func runImport(ctx context.Context, importer *services.Importer, guests *services.GuestService, flags importFlags, log zerolog.Logger) error {
	f, err := os.Open(flags.path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := importer.ImportWorkbook(f, flags.rawSheet)
	if err != nil {
		return err
	}
	for _, is := range res.Issues {
		log.Warn().Str("sheet", is.Sheet).Int("row", is.Row).Str("code", string(is.Code)).Msg(is.Message)
	}
	stats := services.CountGuests(res.Guests)
	log.Info().
		Int("guests", stats.Total).
		Int("checked_in", stats.CheckedIn).
		Strs("dated_sheets", res.DatedSheets).
		Msg("workbook parsed")
	if flags.dryRun {
		return nil
	}

	has, err := guests.HasData(ctx)
	if err != nil {
		return err
	}
	if has && !flags.replace {
		return services.NewError(services.CodeAlreadyExists, "guests already uploaded; rerun with --replace to overwrite every record")
	}
	return guests.Upload(ctx, res.Guests)
}
