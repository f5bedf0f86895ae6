package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vegindex-cli/internal/analysis"
	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
	"github.com/sells-group/vegindex-cli/internal/raster"
	"github.com/sells-group/vegindex-cli/internal/report"
	"github.com/sells-group/vegindex-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts, err := baseOptions()
		if err != nil {
			return err
		}

		api := &apiHandler{
			store:     st,
			opts:      opts,
			maxUpload: int64(cfg.Server.MaxUploadMB) << 20,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(api, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiHandler serves the analysis API.
type apiHandler struct {
	store     store.Store
	opts      analysis.Options
	maxUpload int64
}

func newRouter(api *apiHandler, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", api.health)
	r.Route("/analyses", func(r chi.Router) {
		r.Get("/", api.listAnalyses)
		r.Get("/{id}", api.getAnalysis)
		r.Delete("/{id}", api.deleteAnalysis)
	})
	r.With(middleware.RequestSize(api.maxUpload)).Post("/analyze", api.analyze)
	return r
}

// health reports whether the history store is reachable.
func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			zap.L().Warn("store ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *apiHandler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AnalysisFilter{
		Layer:  q.Get("layer"),
		Kind:   index.Kind(q.Get("kind")),
		Status: model.AnalysisStatus(q.Get("status")),
		Bin:    index.Bin(q.Get("bin")),
	}
	if filter.Bin != "" && !filter.Bin.Valid() {
		writeError(w, http.StatusBadRequest, "unknown bin")
		return
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	if v := q.Get("min_percent"); v != "" {
		if filter.MinPercent, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_percent")
			return
		}
	}

	analyses, err := h.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		zap.L().Error("list analyses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}

	docs := make([]report.Document, 0, len(analyses))
	for i := range analyses {
		docs = append(docs, report.NewDocument(&analyses[i]))
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *apiHandler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		zap.L().Error("get analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, report.NewDocument(a))
}

func (h *apiHandler) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteAnalysis(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		zap.L().Error("delete analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete analysis failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analyze accepts an ESRI ASCII grid body. Query parameters: name (layer
// name, default "upload"), kind (ndvi|other), resolution (meters), save
// (default true).
func (h *apiHandler) analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = "upload"
	}

	opts := h.opts
	if v := q.Get("kind"); v != "" {
		k, ok := index.ParseKind(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "kind must be ndvi or other")
			return
		}
		opts.Kind = k
	}
	if v := q.Get("resolution"); v != "" {
		res, err := strconv.ParseFloat(v, 64)
		if err != nil || res <= 0 {
			writeError(w, http.StatusBadRequest, "invalid resolution")
			return
		}
		opts.Resolution = res
	}
	save := q.Get("save") != "false"

	rast, err := raster.DecodeASCIIGridLimit(r.Body, name, h.maxCells())
	if err != nil {
		var tooLarge *http.MaxBytesError
		var gridTooLarge *raster.GridTooLargeError
		if errors.As(err, &tooLarge) || errors.As(err, &gridTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "raster exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := analysis.Analyze(r.Context(), rast, opts)
	if errors.Is(err, index.ErrInvalidGeometry) || errors.Is(err, index.ErrStatisticsOverflow) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		zap.L().Error("analysis failed", zap.String("layer", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	status := http.StatusOK
	if save && h.store != nil {
		if err := h.store.SaveAnalysis(r.Context(), a); err != nil {
			zap.L().Error("save analysis failed", zap.String("layer", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "save analysis failed")
			return
		}
		status = http.StatusCreated
	}
	writeJSON(w, status, report.NewDocument(a))
}

// maxCells is the largest grid an upload can hold: every sample takes at
// least one digit and one separator.
func (h *apiHandler) maxCells() int {
	if h.maxUpload <= 0 {
		return raster.DefaultMaxCells
	}
	return int(min(h.maxUpload/2, raster.DefaultMaxCells))
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request with zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
