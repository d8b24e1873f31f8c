// Package httpserver exposes the capacity service over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/capledger/capledger/internal/buckets"
	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/database"
	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/repository"
	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/util"
)

const (
	codeBadRequest = "CAPLEDGER_BAD_REQUEST"
	codeNotFound   = "CAPLEDGER_NOT_FOUND"
	codeInternal   = "CAPLEDGER_INTERNAL"
)

// Server serves the capacity API.
type Server struct {
	cfg *config.Config
	db  *database.DB
	svc *capacity.Service
}

func New(cfg *config.Config, db *database.DB, svc *capacity.Service) *Server {
	return &Server{
		cfg: cfg,
		db:  db,
		svc: svc,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if d := s.cfg.Server.RequestTimeout(); d > 0 {
		r.Use(middleware.Timeout(d))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/export", s.handleExport)

	r.Route("/resources", func(r chi.Router) {
		r.Get("/", s.handleListResources)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetResource)
			r.Delete("/", s.handleDeleteResource)
			r.Get("/events", s.handleEvents)
			r.Get("/plan", s.handlePlan)
			r.Get("/plan/stored", s.handleStoredPlan)
			r.Delete("/operationplans", s.handleDeleteOperationPlans)
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.db.HealthCheck(ctx); err != nil {
		status["ok"] = false
		status["db"] = "down"
		status["error"] = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	status["db"] = "up"
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Resources(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"resources": list})
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Resource(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r.URL.Query().Get("start"), r.URL.Query().Get("end"), r.URL.Query().Get("bucket"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	rows, err := s.svc.ResourcePlan(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"resource": chi.URLParam(r, "name"),
		"bucket":   req.Bucket,
		"start":    req.Start,
		"end":      req.End,
		"buckets":  rows,
	})
}

func (s *Server) handleStoredPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bucket := s.cfg.Report.Bucket
	if v := q.Get("bucket"); v != "" {
		var err error
		if bucket, err = buckets.ParseType(v); err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
	}
	page := models.DefaultPagination()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "invalid page")
			return
		}
		page.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "invalid page_size")
			return
		}
		page.PageSize = n
	}
	rows, total, err := s.svc.StoredPlan(r.Context(), chi.URLParam(r, "name"), bucket, page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"buckets":     rows,
		"total":       total,
		"page":        page.Page,
		"total_pages": page.TotalPages(total),
	})
}

type exportRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Bucket string `json:"bucket"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body exportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body, 4*1024); err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
	}
	req, err := s.reportRequest(body.Start, body.End, body.Bucket)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	result, err := s.svc.ExportPlans(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteOperationPlans(w http.ResponseWriter, r *http.Request) {
	deleteLocked := false
	if v := r.URL.Query().Get("locked"); v != "" {
		var err error
		if deleteLocked, err = strconv.ParseBool(v); err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "invalid locked flag")
			return
		}
	}
	n, err := s.svc.DeleteOperationPlans(r.Context(), chi.URLParam(r, "name"), deleteLocked)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": n})
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteResource(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportRequest fills the blanks of a report request from the configured
// defaults.
func (s *Server) reportRequest(start, end, bucket string) (capacity.ReportRequest, error) {
	req, err := s.svc.DefaultRequest()
	if err != nil {
		return req, err
	}
	if start != "" {
		if req.Start, err = util.ParseFlexible(start); err != nil {
			return req, errors.New("invalid start date")
		}
		if end == "" {
			req.End = req.Start.AddDate(0, 0, s.cfg.Planning.HorizonDays)
		}
	}
	if end != "" {
		if req.End, err = util.ParseFlexible(end); err != nil {
			return req, errors.New("invalid end date")
		}
	}
	if bucket != "" {
		if req.Bucket, err = buckets.ParseType(bucket); err != nil {
			return req, err
		}
	}
	return req, nil
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planning.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, capacity.ErrInvalidRequest), errors.Is(err, planning.ErrData), errors.Is(err, models.ErrInvalid):
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	if limit <= 0 {
		limit = 1 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
		"code":  code,
	})
}
