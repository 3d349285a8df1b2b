package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/chat"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/dashboard"
	"budgetbuddy/internal/database"
	"budgetbuddy/internal/handlers"
	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/metrics"
	"budgetbuddy/internal/predict"
	"budgetbuddy/internal/reports"
	"budgetbuddy/internal/session"
	"budgetbuddy/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger := logging.New("main")

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	store := session.NewPersistent(database.NewRepository(db))

	reg := metrics.NewRegistry()
	client := api.NewClient(cfg.APIBaseURL, store, cfg.HTTPTimeout, api.WithMetrics(metrics.NewAPI(reg)))

	assistant := predict.New(client, cfg.PredictDebounce)
	defer assistant.Close()

	files, err := storage.NewLocalStorage(cfg.ReportsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize report storage")
	}

	h := handlers.New(
		client,
		dashboard.New(client, store),
		predict.NewDraft(assistant, time.Now()),
		chat.NewConversation(client, store),
		reports.NewService(client, files),
		cfg.TemplateDir,
	)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	r.Handle("/metrics", metrics.Handler(reg))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	h.Mount(r)

	srv := &http.Server{Addr: ":" + cfg.ServerPort, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("api", cfg.APIBaseURL).Msgf("server starting on http://localhost:%s", cfg.ServerPort)
	for _, ip := range lanIPs() {
		logger.Info().Msgf("LAN access: http://%s:%s", ip, cfg.ServerPort)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// lanIPs lists the IPv4 addresses of non-loopback interfaces that are up.
func lanIPs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			prefix, err := netip.ParsePrefix(addr.String())
			if err != nil || !prefix.Addr().Is4() {
				continue
			}
			ips = append(ips, prefix.Addr().String())
		}
	}
	return ips
}
