// Package httpapi serves the JSON command and query API over a command
// Service.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/integrity"
	"github.com/veryx/veryx/internal/metrics"
)

// Deps are the collaborators of the router.
type Deps struct {
	Service *command.Service
	Logger  *slog.Logger
	Version string

	// Ping checks the backing store for /healthz. Nil means always healthy.
	Ping func(context.Context) error
}

type api struct {
	svc    *command.Service
	logger *slog.Logger
}

type evidenceExportRequest struct {
	Hash   string `json:"hash"`
	Format string `json:"format"`
}

type integrityResponse struct {
	Success bool `json:"success"`
	integrity.Report
}

type replayResponse struct {
	Success bool `json:"success"`
	command.ReplayResult
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	version := strings.TrimSpace(deps.Version)
	if version == "" {
		version = "dev"
	}

	a := &api{svc: deps.Service, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(requestLoggingMiddleware(logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("VERYX Enterprise OS - Core Active"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(r.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version})
	})

	r.Route("/api/command", func(r chi.Router) {
		r.Post("/"+command.CmdCreatePortfolio, handle(a, func(ctx context.Context, req command.CreatePortfolioRequest) (map[string]any, error) {
			id, err := a.svc.CreatePortfolio(ctx, req)
			return map[string]any{"id": id}, err
		}))
		r.Post("/"+command.CmdApprovePortfolio, handle(a, func(ctx context.Context, req command.ApprovePortfolioRequest) (map[string]any, error) {
			return map[string]any{"message": "Portfolio Approved"}, a.svc.ApprovePortfolio(ctx, req)
		}))
		r.Post("/"+command.CmdLogExpense, handle(a, func(ctx context.Context, req command.LogExpenseRequest) (map[string]any, error) {
			return map[string]any{"message": "Expense Logged"}, a.svc.LogExpense(ctx, req)
		}))
		r.Post("/"+command.CmdAddResource, handle(a, func(ctx context.Context, req command.AddResourceRequest) (map[string]any, error) {
			id, err := a.svc.AddResource(ctx, req)
			return map[string]any{"id": id}, err
		}))
		r.Post("/"+command.CmdLogTimesheet, handle(a, func(ctx context.Context, req command.LogTimesheetRequest) (map[string]any, error) {
			return nil, a.svc.LogTimesheet(ctx, req)
		}))
		r.Post("/"+command.CmdRegisterAsset, handle(a, func(ctx context.Context, req command.RegisterAssetRequest) (map[string]any, error) {
			id, err := a.svc.RegisterAsset(ctx, req)
			return map[string]any{"id": id}, err
		}))
		r.Post("/"+command.CmdIssueWorkOrder, handle(a, func(ctx context.Context, req command.IssueWorkOrderRequest) (map[string]any, error) {
			return nil, a.svc.IssueWorkOrder(ctx, req)
		}))
		r.Post("/"+command.CmdGenerateEvidence, handle(a, func(ctx context.Context, req command.GenerateEvidenceRequest) (map[string]any, error) {
			receipt, err := a.svc.GenerateEvidence(ctx, req)
			return map[string]any{"id": receipt.ID, "hash": receipt.Hash}, err
		}))
		r.Post("/"+command.CmdRequestAI, handle(a, func(ctx context.Context, req command.RequestAIRequest) (map[string]any, error) {
			result, err := a.svc.RequestAI(ctx, req)
			return map[string]any{"data": result}, err
		}))
		r.Post("/"+command.CmdReportESG, handle(a, func(ctx context.Context, req command.ReportESGRequest) (map[string]any, error) {
			id, err := a.svc.ReportESG(ctx, req)
			return map[string]any{"id": id}, err
		}))
	})

	r.Route("/api/query", func(r chi.Router) {
		r.Get("/state", a.state)
		r.Get("/audit-log", a.auditLog)
		r.Post("/evidence/export", a.exportEvidence)
	})

	r.Route("/api/system", func(r chi.Router) {
		r.Get("/integrity", a.verify)
		r.Post("/replay", a.replay)
	})

	return r
}

// handle decodes a command request, runs it and merges its result fields
// into a success response.
func handle[T any](a *api, run func(context.Context, T) (map[string]any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, a.logger, err)
			return
		}

		body, err := run(r.Context(), req)
		if err != nil {
			writeError(w, r, a.logger, err)
			return
		}
		if body == nil {
			body = map[string]any{}
		}
		body["success"] = true
		writeJSON(w, http.StatusOK, body)
	}
}

func (a *api) state(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.svc.State(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *api) auditLog(w http.ResponseWriter, r *http.Request) {
	events, err := a.svc.AuditLog(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *api) exportEvidence(w http.ResponseWriter, r *http.Request) {
	var req evidenceExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if format := strings.ToLower(strings.TrimSpace(req.Format)); format != "" && format != "json" {
		writeError(w, r, a.logger, &badRequestError{err: errors.New("only json export is supported")})
		return
	}

	doc, err := a.svc.ExportEvidence(r.Context(), req.Hash)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="evidence-`+doc.ID+`.json"`)
	writeJSON(w, http.StatusOK, doc)
}

func (a *api) verify(w http.ResponseWriter, r *http.Request) {
	report, err := a.svc.Integrity(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, integrityResponse{Success: true, Report: report})
}

func (a *api) replay(w http.ResponseWriter, r *http.Request) {
	result, err := a.svc.Replay(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, replayResponse{Success: true, ReplayResult: result})
}
