package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/export"
	"github.com/sells-group/leadgen/internal/model"
	"github.com/sells-group/leadgen/internal/pipeline"
)

// api bundles the HTTP handlers with their dependencies.
type api struct {
	env      *appEnv
	validate *validator.Validate
}

func newAPI(env *appEnv) *api {
	return &api{env: env, validate: validator.New()}
}

func (a *api) routes(r chi.Router) {
	r.Get("/health", a.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/leads/generate", a.generateLeads)
		r.Get("/leads/status/{runID}", a.runStatus)
		r.Get("/leads/runs", a.listRuns)
		r.Delete("/leads/runs/{runID}", a.deleteRun)

		r.Get("/campaigns", a.listCampaigns)
		r.Get("/campaigns/{campaignID}", a.getCampaign)
		r.Get("/campaigns/{campaignID}/stats", a.campaignStats)
		r.Get("/campaigns/{campaignID}/leads", a.campaignLeads)
		r.Get("/campaigns/{campaignID}/export", a.exportCampaign)

		r.Get("/config/check", a.configCheck)
		r.Get("/metrics", a.metrics)
	})
}

type generateRequest struct {
	Query        string `json:"query" validate:"required,min=2"`
	Location     string `json:"location" validate:"required,min=2"`
	MaxLeads     int    `json:"max_leads" validate:"omitempty,min=1,max=100"`
	CampaignName string `json:"campaign_name" validate:"omitempty,max=200"`
	FromEmail    string `json:"from_email" validate:"omitempty,email"`
	// Per-request stage toggles; omitted means enabled.
	IncludeResearch        *bool `json:"include_research"`
	IncludePersonalization *bool `json:"include_personalization"`
}

func (a *api) generateLeads(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := a.env.Orchestrator.Start(r.Context(), pipeline.GenerateRequest{
		Query:                  req.Query,
		Location:               req.Location,
		MaxLeads:               req.MaxLeads,
		CampaignName:           req.CampaignName,
		FromEmail:              req.FromEmail,
		IncludeResearch:        req.IncludeResearch,
		IncludePersonalization: req.IncludePersonalization,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

func (a *api) runStatus(w http.ResponseWriter, r *http.Request) {
	run, err := a.env.Registry.Get(chi.URLParam(r, "runID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": a.env.Registry.List()})
}

func (a *api) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := a.env.Registry.Delete(chi.URLParam(r, "runID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *api) listCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	campaigns, err := a.env.Store.ListCampaigns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (a *api) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := a.env.Store.GetCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (a *api) campaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.env.Store.GetCampaignStats(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *api) campaignLeads(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	status := model.LeadStatus(r.URL.Query().Get("status"))

	if _, err := a.env.Store.GetCampaign(r.Context(), campaignID); err != nil {
		writeDomainError(w, err)
		return
	}
	leads, err := a.env.Store.GetLeadsByCampaign(r.Context(), campaignID, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// exportCampaign streams CSV inline; XLSX is written to a temp file first
// because the workbook format is not streamable.
func (a *api) exportCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	campaign, err := a.env.Store.GetCampaign(r.Context(), campaignID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	leads, err := a.env.Store.GetLeadsByCampaign(r.Context(), campaignID, "")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=\"leads.csv\"")
		if err := export.WriteCSV(w, leads); err != nil {
			zap.L().Error("export stream failed",
				zap.String("campaign_id", campaignID),
				zap.Error(err),
			)
		}
	case "xlsx":
		dir, err := os.MkdirTemp("", "leadgen-export-")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}
		defer os.RemoveAll(dir) //nolint:errcheck
		path := filepath.Join(dir, "leads.xlsx")
		if err := export.WriteXLSX(path, leads); err != nil {
			zap.L().Error("export failed",
				zap.String("campaign_id", campaign.ID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=\"leads.xlsx\"")
		http.ServeFile(w, r, path)
	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}

func (a *api) configCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cfg.CheckStatus())
}

func (a *api) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pipeline": a.env.Metrics.Snapshot(),
		"breakers": a.env.Orchestrator.Breakers().States(),
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps model sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case model.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case model.IsNotConfigured(err):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
