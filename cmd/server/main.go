package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timeline-editor/internal/commands"
	"timeline-editor/internal/editor"
	"timeline-editor/internal/platform/config"
	"timeline-editor/internal/platform/logger"
	"timeline-editor/internal/platform/metrics"
	"timeline-editor/internal/project"
	"timeline-editor/internal/timeline"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	maxHistory := config.GetEnvInt("MAX_HISTORY", commands.DefaultMaxHistory)
	mergeWindow := config.GetEnvMillis("MERGE_WINDOW_MS", commands.DefaultMergeWindow)
	projectFile := config.GetEnv("PROJECT_FILE", "")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	tl := timeline.New(log)
	if projectFile != "" {
		loaded, err := project.LoadFile(projectFile, log)
		if err != nil {
			log.Error("failed to load project", "path", projectFile, "error", err)
			os.Exit(1)
		}
		tl = loaded
	}

	history := commands.NewHistory(maxHistory, log)
	svc := editor.NewService(tl, history, mergeWindow, log)
	met := metrics.New()
	h := editor.NewHandler(svc, log, met)

	svc.OnModified(func(version uint64) { met.SetTimelineVersion(version) })

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			snap := svc.Snapshot()
			segments := 0
			for _, t := range snap.Tracks {
				segments += len(t.Segments)
			}
			met.SetTimelineVersion(snap.Version)
			met.SetTimelineShape(len(snap.Tracks), segments)
		}).ServeHTTP(w, req)
	})
	h.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("edit server starting",
		"port", port,
		"max_history", maxHistory,
		"merge_window_ms", mergeWindow.Milliseconds(),
		"project_file", projectFile,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	if svc.Dirty() && projectFile != "" {
		if err := saveProject(svc, projectFile); err != nil {
			log.Error("failed to save project on shutdown", "path", projectFile, "error", err)
		} else {
			log.Info("project saved", "path", projectFile)
		}
	}

	log.Info("server stopped")
}

func saveProject(svc *editor.Service, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := svc.SaveProject(f); err != nil {
		return err
	}
	return f.Close()
}
