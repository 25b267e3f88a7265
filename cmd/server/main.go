package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"yt-creators/internal/config"
	"yt-creators/internal/db"
	"yt-creators/internal/export"
	"yt-creators/internal/logger"
	"yt-creators/internal/middleware"
	"yt-creators/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

type App struct {
	db          *sqlx.DB
	asynqClient tasks.TaskEnqueuer
	logger      *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	conn, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("could not connect to database", zap.Error(err))
	}
	defer conn.Close()

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	app := &App{db: conn, asynqClient: client, logger: log}
	limiter := middleware.NewRateLimiter(rate.Limit(5), 10, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("server starting", zap.String("commit", CommitSHA), zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func (a *App) routes(limiter *middleware.RateLimiter) http.Handler {
	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.HandleFunc("/creators", a.listCreatorsHandler).Methods(http.MethodGet)
	r.HandleFunc("/creators.csv", a.creatorsCSVHandler).Methods(http.MethodGet)
	r.HandleFunc("/creators/{channel_id}", a.getCreatorHandler).Methods(http.MethodGet)
	r.HandleFunc("/sync", a.syncHandler).Methods(http.MethodPost)
	return r
}

func (a *App) listCreatorsHandler(w http.ResponseWriter, r *http.Request) {
	creators, err := db.ListCreators(r.Context(), a.db)
	if err != nil {
		a.logger.Error("failed to list creators", zap.Error(err))
		http.Error(w, "Failed to list creators", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, creators)
}

func (a *App) getCreatorHandler(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channel_id"]
	creator, err := db.GetCreatorByChannelID(r.Context(), a.db, channelID)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Creator not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("failed to get creator", zap.String("channel_id", channelID), zap.Error(err))
		http.Error(w, "Failed to get creator", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, creator)
}

func (a *App) creatorsCSVHandler(w http.ResponseWriter, r *http.Request) {
	creators, err := db.ListCreators(r.Context(), a.db)
	if err != nil {
		a.logger.Error("failed to list creators", zap.Error(err))
		http.Error(w, "Failed to list creators", http.StatusInternalServerError)
		return
	}

	rows := make([]export.Row, 0, len(creators))
	for _, c := range creators {
		rows = append(rows, export.Row{Name: c.Name, Subscribers: c.Subscribers})
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="creators.csv"`)
	if err := export.WriteCSV(w, rows, false); err != nil {
		a.logger.Error("failed to write csv", zap.Error(err))
	}
}

func (a *App) syncHandler(w http.ResponseWriter, r *http.Request) {
	var p tasks.SyncCategoryTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid sync request", http.StatusBadRequest)
		return
	}
	if p.Cap < 0 {
		http.Error(w, "cap must not be negative", http.StatusBadRequest)
		return
	}
	switch p.Strategy {
	case "", config.StrategyLatestVideo, config.StrategyDescription:
	default:
		http.Error(w, "Unknown link strategy", http.StatusBadRequest)
		return
	}

	info, err := tasks.EnqueueSyncCategory(a.asynqClient, p)
	if err != nil {
		a.logger.Error("failed to enqueue sync", zap.Error(err))
		http.Error(w, "Failed to enqueue sync", http.StatusInternalServerError)
		return
	}
	a.logger.Info("sync enqueued", zap.String("task_id", info.ID), zap.String("category", p.Category))
	a.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "queue": info.Queue})
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to write json", zap.Int("status", status), zap.Error(err))
	}
}
