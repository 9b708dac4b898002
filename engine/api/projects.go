package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/engine/registry"
)

type createProjectRequest struct {
	Title             string            `json:"title"`
	Thesis            string            `json:"thesis"`
	ResearchQuestions []string          `json:"research_questions"`
	AntiScope         []string          `json:"anti_scope"`
	TargetJournal     string            `json:"target_journal,omitempty"`
	Rigor             domain.RigorLevel `json:"rigor"`
	Tags              []string          `json:"tags,omitempty"`
}

// NewCreateProjectHandler handles POST /api/projects.
func NewCreateProjectHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", "", fmt.Errorf("invalid request body: %w", err)))
			return
		}

		created, err := reg.CreateProject(r.Context(), domain.Project{
			Title:             req.Title,
			Thesis:            req.Thesis,
			ResearchQuestions: req.ResearchQuestions,
			AntiScope:         req.AntiScope,
			TargetJournal:     req.TargetJournal,
			Rigor:             req.Rigor,
			Tags:              req.Tags,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// NewListProjectsHandler handles GET /api/projects, including the
// ?view=hub[&tag=...] dashboard variant.
func NewListProjectsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("view") == "hub" {
			projects, err := listFiltered(r, reg)
			if err != nil {
				writeError(w, err)
				return
			}
			views := make([]registry.HubView, 0, len(projects))
			for _, p := range projects {
				view, err := reg.Hub(r.Context(), p.ID)
				if err != nil {
					writeError(w, err)
					return
				}
				views = append(views, view)
			}
			writeJSON(w, http.StatusOK, views)
			return
		}

		projects, err := listFiltered(r, reg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, projects)
	}
}

func listFiltered(r *http.Request, reg *registry.Registry) ([]domain.Project, error) {
	if tag := r.URL.Query().Get("tag"); tag != "" {
		return reg.ProjectsByTag(r.Context(), tag)
	}
	return reg.ListProjects(r.Context())
}

// NewGetProjectHandler handles GET /api/projects/{id}.
func NewGetProjectHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		project, err := reg.GetProject(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, project)
	}
}

type patchProjectRequest struct {
	Title             *string            `json:"title"`
	Thesis            *string            `json:"thesis"`
	ResearchQuestions []string           `json:"research_questions"`
	AntiScope         []string           `json:"anti_scope"`
	TargetJournal     *string            `json:"target_journal"`
	Rigor             *domain.RigorLevel `json:"rigor"`
	Tags              []string           `json:"tags"`
}

// NewUpdateProjectHandler handles PATCH /api/projects/{id}, applying only
// the fields present in the request body.
func NewUpdateProjectHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		existing, err := reg.GetProject(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		var req patchProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, domain.NewValidationError("body", "", fmt.Errorf("invalid request body: %w", err)))
			return
		}

		if req.Title != nil {
			existing.Title = *req.Title
		}
		if req.Thesis != nil {
			existing.Thesis = *req.Thesis
		}
		if req.ResearchQuestions != nil {
			existing.ResearchQuestions = req.ResearchQuestions
		}
		if req.AntiScope != nil {
			existing.AntiScope = req.AntiScope
		}
		if req.TargetJournal != nil {
			existing.TargetJournal = *req.TargetJournal
		}
		if req.Rigor != nil {
			existing.Rigor = *req.Rigor
		}
		if req.Tags != nil {
			existing.Tags = req.Tags
		}

		updated, err := reg.UpdateProject(r.Context(), existing)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// NewIngestionStatusHandler handles
// GET /api/projects/{project_id}/ingest/{ingestion_id}/status.
func NewIngestionStatusHandler(gs *graph.GraphStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ingestionID := r.PathValue("ingestion_id")
		ingestion, err := gs.Ingests.Get(r.Context(), ingestionID)
		if err != nil {
			writeError(w, domain.NewNotFoundError("ingestion", ingestionID))
			return
		}
		if ingestion.ProjectID != r.PathValue("project_id") {
			writeError(w, domain.NewNotFoundError("ingestion", ingestionID))
			return
		}
		writeJSON(w, http.StatusOK, ingestion)
	}
}
