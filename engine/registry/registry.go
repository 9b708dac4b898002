// Package registry owns project lifecycle — creation, seed-file attachment,
// and the hub view that summarizes a project's activity across jobs, claims,
// and ingestions.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/pkg/repo"
	"github.com/google/uuid"
)

// Registry mediates all project CRUD through the graph store.
type Registry struct {
	store *graph.GraphStore
}

// New creates a Registry backed by store.
func New(store *graph.GraphStore) *Registry {
	return &Registry{store: store}
}

// HubView summarizes a project's current standing for the dashboard surface.
type HubView struct {
	Project       domain.Project `json:"project"`
	IngestionCount int           `json:"ingestion_count"`
	JobCount       int           `json:"job_count"`
	ClaimCount     int           `json:"claim_count"`
	AcceptedClaims int           `json:"accepted_claims"`
	FlaggedClaims  int           `json:"flagged_claims"`
}

// CreateProject validates and persists a new project.
func (r *Registry) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if err := domain.ValidateProjectInput(p); err != nil {
		return domain.Project{}, err
	}
	now := time.Now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.SeedFiles == nil {
		p.SeedFiles = []domain.SeedFile{}
	}
	return r.store.Projects.Create(ctx, p)
}

// GetProject fetches a project, translating a not-found repo error into
// domain.NotFoundError for the API layer to map to 404.
func (r *Registry) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := r.store.Projects.Get(ctx, id)
	if err != nil {
		return domain.Project{}, domain.NewNotFoundError("project", id)
	}
	return p, nil
}

// UpdateProject validates and persists changes to an existing project.
func (r *Registry) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if err := domain.ValidateProjectInput(p); err != nil {
		return domain.Project{}, err
	}
	if _, err := r.GetProject(ctx, p.ID); err != nil {
		return domain.Project{}, err
	}
	p.UpdatedAt = time.Now()
	return r.store.Projects.Update(ctx, p)
}

// ListProjects returns up to 1000 projects, most recently updated first.
func (r *Registry) ListProjects(ctx context.Context) ([]domain.Project, error) {
	all, err := r.store.Projects.List(ctx, repo.ListOpts{Limit: 1000})
	if err != nil {
		return nil, err
	}
	sortByRecency(all)
	return all, nil
}

// RecentProjects returns the n most recently updated projects.
func (r *Registry) RecentProjects(ctx context.Context, n int) ([]domain.Project, error) {
	all, err := r.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && n < len(all) {
		return all[:n], nil
	}
	return all, nil
}

// ProjectsByTag returns every project carrying the given tag.
func (r *Registry) ProjectsByTag(ctx context.Context, tag string) ([]domain.Project, error) {
	all, err := r.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Project
	for _, p := range all {
		for _, t := range p.Tags {
			if t == tag {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// AddSeedFile attaches content to a project, deduplicating on content hash
// so re-uploading the same file is a no-op rather than a duplicate entry.
func (r *Registry) AddSeedFile(ctx context.Context, projectID, filename string, content []byte) (domain.Project, error) {
	p, err := r.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	for _, sf := range p.SeedFiles {
		if sf.Hash == hash {
			return p, nil
		}
	}

	p.SeedFiles = append(p.SeedFiles, domain.SeedFile{
		Filename: filename,
		Hash:     hash,
		AddedAt:  time.Now(),
	})
	p.UpdatedAt = time.Now()
	return r.store.Projects.Update(ctx, p)
}

// Hub assembles the dashboard summary for a project.
func (r *Registry) Hub(ctx context.Context, projectID string) (HubView, error) {
	p, err := r.GetProject(ctx, projectID)
	if err != nil {
		return HubView{}, err
	}

	ingestions, err := r.store.ListIngestionsByProject(ctx, projectID)
	if err != nil {
		return HubView{}, err
	}
	jobs, err := r.store.ListJobsByProject(ctx, projectID)
	if err != nil {
		return HubView{}, err
	}
	claims, err := r.store.ListClaimsByProject(ctx, projectID)
	if err != nil {
		return HubView{}, err
	}

	view := HubView{
		Project:        p,
		IngestionCount: len(ingestions),
		JobCount:       len(jobs),
		ClaimCount:     len(claims),
	}
	for _, c := range claims {
		switch c.Status {
		case domain.ClaimAccepted:
			view.AcceptedClaims++
		case domain.ClaimFlagged:
			view.FlaggedClaims++
		}
	}
	return view, nil
}

func sortByRecency(projects []domain.Project) {
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
}
