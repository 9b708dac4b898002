package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore persists the research-artifact domain model on top of the
// generic Neo4j repository, with hand-written Cypher for the relationship
// and filtered-list queries the generic repo does not express.
type GraphStore struct {
	driver    neo4j.DriverWithContext
	Projects  *repo.Neo4jRepo[domain.Project, string]
	Ingests   *repo.Neo4jRepo[domain.Ingestion, string]
	Jobs      *repo.Neo4jRepo[domain.Job, string]
	Claims    *repo.Neo4jRepo[domain.Claim, string]
	Blocks    *repo.Neo4jRepo[domain.Block, string]
	Manifests *repo.Neo4jRepo[domain.ArtifactManifest, string]
}

// New creates a GraphStore backed by driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{
		driver:    driver,
		Projects:  repo.NewNeo4jRepo[domain.Project, string](driver, "Project", projectToMap, projectFromRecord),
		Ingests:   repo.NewNeo4jRepo[domain.Ingestion, string](driver, "Ingestion", ingestionToMap, ingestionFromRecord),
		Jobs:      repo.NewNeo4jRepo[domain.Job, string](driver, "Job", jobToMap, jobFromRecord),
		Claims:    repo.NewNeo4jRepo[domain.Claim, string](driver, "Claim", claimToMap, claimFromRecord),
		Blocks:    repo.NewNeo4jRepo[domain.Block, string](driver, "Block", blockToMap, blockFromRecord),
		Manifests: repo.NewNeo4jRepo[domain.ArtifactManifest, string](driver, "ArtifactManifest", manifestToMap, manifestFromRecord, repo.WithIDKey[domain.ArtifactManifest, string]("job_id")),
	}
}

// ListIngestionsByProject returns every ingestion recorded against a project.
func (g *GraphStore) ListIngestionsByProject(ctx context.Context, projectID string) ([]domain.Ingestion, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Ingestion {project_id: $pid}) RETURN n`, map[string]any{"pid": projectID})
	if err != nil {
		return nil, err
	}
	var items []domain.Ingestion
	for result.Next(ctx) {
		item, err := ingestionFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListJobsByProject returns every job recorded against a project.
func (g *GraphStore) ListJobsByProject(ctx context.Context, projectID string) ([]domain.Job, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Job {project_id: $pid}) RETURN n`, map[string]any{"pid": projectID})
	if err != nil {
		return nil, err
	}
	var items []domain.Job
	for result.Next(ctx) {
		item, err := jobFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListClaimsByProject returns every claim recorded against a project.
func (g *GraphStore) ListClaimsByProject(ctx context.Context, projectID string) ([]domain.Claim, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Claim {project_id: $pid}) RETURN n`, map[string]any{"pid": projectID})
	if err != nil {
		return nil, err
	}
	var items []domain.Claim
	for result.Next(ctx) {
		item, err := claimFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListClaimsByStatus returns every claim of a project in a given status.
func (g *GraphStore) ListClaimsByStatus(ctx context.Context, projectID string, status domain.ClaimStatus) ([]domain.Claim, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Claim {project_id: $pid, status: $status}) RETURN n`,
		map[string]any{"pid": projectID, "status": string(status)})
	if err != nil {
		return nil, err
	}
	var items []domain.Claim
	for result.Next(ctx) {
		item, err := claimFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// SaveClaimEdge records a conflict or support relationship between two claims.
func (g *GraphStore) SaveClaimEdge(ctx context.Context, e ClaimEdge) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (a:Claim {id: $from}), (b:Claim {id: $to})
		 MERGE (a)-[r:%s {id: $id}]->(b)
		 SET r.summary = $summary`,
		sanitizeRelType(e.Type),
	)
	_, err := sess.Run(ctx, cypher, map[string]any{
		"from": e.FromID, "to": e.ToID, "id": e.ID, "summary": e.Summary,
	})
	return err
}

// ListBlocksByProject returns every manuscript block for a project.
func (g *GraphStore) ListBlocksByProject(ctx context.Context, projectID string) ([]domain.Block, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Block {project_id: $pid}) RETURN n`, map[string]any{"pid": projectID})
	if err != nil {
		return nil, err
	}
	var items []domain.Block
	for result.Next(ctx) {
		item, err := blockFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// sanitizeRelType ensures the relationship type is a valid Cypher identifier.
func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := range t {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	for i := range safe {
		if safe[i] >= 'a' && safe[i] <= 'z' {
			safe[i] -= 32
		}
	}
	return string(safe)
}

// --- Project ---

func projectToMap(p domain.Project) map[string]any {
	return map[string]any{
		"id":                 p.ID,
		"title":              p.Title,
		"thesis":             p.Thesis,
		"research_questions": p.ResearchQuestions,
		"anti_scope":         p.AntiScope,
		"target_journal":     p.TargetJournal,
		"seed_files":         toJSON(p.SeedFiles),
		"rigor":              string(p.Rigor),
		"tags":               p.Tags,
		"created_at":         p.CreatedAt.Format(time.RFC3339),
		"updated_at":         p.UpdatedAt.Format(time.RFC3339),
	}
}

func projectFromRecord(rec *neo4j.Record) (domain.Project, error) {
	props, err := propsFromRecord(rec)
	if err != nil {
		return domain.Project{}, err
	}
	return domain.Project{
		ID:                strProp(props, "id"),
		Title:             strProp(props, "title"),
		Thesis:            strProp(props, "thesis"),
		ResearchQuestions: strSliceProp(props, "research_questions"),
		AntiScope:         strSliceProp(props, "anti_scope"),
		TargetJournal:     strProp(props, "target_journal"),
		SeedFiles:         jsonProp[[]domain.SeedFile](props, "seed_files"),
		Rigor:             domain.RigorLevel(strProp(props, "rigor")),
		Tags:              strSliceProp(props, "tags"),
		CreatedAt:         timeProp(props, "created_at"),
		UpdatedAt:         timeProp(props, "updated_at"),
	}, nil
}

// --- Ingestion ---

func ingestionToMap(i domain.Ingestion) map[string]any {
	m := map[string]any{
		"id":           i.ID,
		"project_id":   i.ProjectID,
		"filename":     i.Filename,
		"content_hash": i.ContentHash,
		"state":        string(i.State),
		"progress_pct": i.ProgressPct,
		"error":        i.Error,
		"job_id":       i.JobID,
	}
	if i.FirstGlance != nil {
		m["first_glance"] = toJSON(i.FirstGlance)
	}
	if i.Confidence != nil {
		m["confidence"] = string(*i.Confidence)
	}
	return m
}

func ingestionFromRecord(rec *neo4j.Record) (domain.Ingestion, error) {
	props, err := propsFromRecord(rec)
	if err != nil {
		return domain.Ingestion{}, err
	}
	i := domain.Ingestion{
		ID:          strProp(props, "id"),
		ProjectID:   strProp(props, "project_id"),
		Filename:    strProp(props, "filename"),
		ContentHash: strProp(props, "content_hash"),
		State:       domain.IngestionState(strProp(props, "state")),
		ProgressPct: intProp(props, "progress_pct"),
		Error:       strProp(props, "error"),
		JobID:       strProp(props, "job_id"),
		FirstGlance: jsonPtrProp[domain.FirstGlance](props, "first_glance"),
	}
	if c := strProp(props, "confidence"); c != "" {
		conf := domain.Confidence(c)
		i.Confidence = &conf
	}
	return i, nil
}

// --- Job ---

func jobToMap(j domain.Job) map[string]any {
	m := map[string]any{
		"id":            j.ID,
		"project_id":    j.ProjectID,
		"ingestion_id":  j.IngestionID,
		"status":        string(j.Status),
		"current_stage": j.CurrentStage,
		"progress_pct":  j.ProgressPct,
		"initial_state": toJSON(j.InitialState),
		"error":         j.Error,
		"created_at":    j.CreatedAt.Format(time.RFC3339),
	}
	if j.Result != nil {
		m["result"] = toJSON(j.Result)
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339)
	}
	if j.FinishedAt != nil {
		m["finished_at"] = j.FinishedAt.Format(time.RFC3339)
	}
	return m
}

func jobFromRecord(rec *neo4j.Record) (domain.Job, error) {
	props, err := propsFromRecord(rec)
	if err != nil {
		return domain.Job{}, err
	}
	return domain.Job{
		ID:           strProp(props, "id"),
		ProjectID:    strProp(props, "project_id"),
		IngestionID:  strProp(props, "ingestion_id"),
		Status:       domain.JobStatus(strProp(props, "status")),
		CurrentStage: strProp(props, "current_stage"),
		ProgressPct:  intProp(props, "progress_pct"),
		InitialState: jsonProp[domain.InitialState](props, "initial_state"),
		Result:       jsonPtrProp[domain.JobResult](props, "result"),
		Error:        strProp(props, "error"),
		CreatedAt:    timeProp(props, "created_at"),
		StartedAt:    timePtrProp(props, "started_at"),
		FinishedAt:   timePtrProp(props, "finished_at"),
	}, nil
}

// --- Claim ---

func claimToMap(c domain.Claim) map[string]any {
	m := map[string]any{
		"id":                c.ID,
		"project_id":        c.ProjectID,
		"subject":           c.Subject,
		"predicate":         c.Predicate,
		"object":            c.Object,
		"confidence":        c.Confidence,
		"evidence":          c.Evidence,
		"source":            toJSON(c.Source),
		"status":            string(c.Status),
		"provenance":        toJSON(c.Provenance),
		"research_question": c.ResearchQuestion,
		"citation_keys":     c.CitationKeys,
	}
	if c.Conflict != nil {
		m["conflict"] = toJSON(c.Conflict)
	}
	return m
}

func claimFromRecord(rec *neo4j.Record) (domain.Claim, error) {
	props, err := propsFromRecord(rec)
	if err != nil {
		return domain.Claim{}, err
	}
	return domain.Claim{
		ID:               strProp(props, "id"),
		ProjectID:        strProp(props, "project_id"),
		Subject:          strProp(props, "subject"),
		Predicate:        strProp(props, "predicate"),
		Object:           strProp(props, "object"),
		Confidence:       floatProp(props, "confidence"),
		Evidence:         strProp(props, "evidence"),
		Source:           jsonProp[domain.SourcePointer](props, "source"),
		Status:           domain.ClaimStatus(strProp(props, "status")),
		Provenance:       jsonProp[domain.Provenance](props, "provenance"),
		ResearchQuestion: strProp(props, "research_question"),
		CitationKeys:     strSliceProp(props, "citation_keys"),
		Conflict:         jsonPtrProp[domain.ConflictRecord](props, "conflict"),
	}, nil
}

// --- Block ---

func blockToMap(b domain.Block) map[string]any {
	return map[string]any{
		"id":            b.ID,
		"project_id":    b.ProjectID,
		"text":          b.Text,
		"claim_ids":     b.ClaimIDs,
		"citation_keys": b.CitationKeys,
		"status":        string(b.Status),
		"version":       b.Version,
		"rigor":         string(b.Rigor),
	}
}

func blockFromRecord(rec *neo4j.Record) (domain.Block, error) {
	props, err := propsFromRecord(rec)
	if err != nil {
		return domain.Block{}, err
	}
	return domain.Block{
		ID:           strProp(props, "id"),
		ProjectID:    strProp(props, "project_id"),
		Text:         strProp(props, "text"),
		ClaimIDs:     strSliceProp(props, "claim_ids"),
		CitationKeys: strSliceProp(props, "citation_keys"),
		Status:       domain.BlockStatus(strProp(props, "status")),
		Version:      intProp(props, "version"),
		Rigor:        domain.RigorLevel(strProp(props, "rigor")),
	}, nil
}

// --- ArtifactManifest ---

func manifestToMap(m domain.ArtifactManifest) map[string]any {
	return map[string]any{
		"job_id":           m.JobID,
		"project_id":       m.ProjectID,
		"blocks":           toJSON(m.Blocks),
		"tables":           toJSON(m.Tables),
		"visuals":          toJSON(m.Visuals),
		"total_word_count": m.TotalWordCount,
		"total_citations":  m.TotalCitations,
		"rigor":            string(m.Rigor),
		"created_at":       m.CreatedAt.Format(time.RFC3339),
	}
}

func manifestFromRecord(rec *neo4j.Record) (domain.ArtifactManifest, error) {
	props, err := propsFromRecord(rec)
	if err != nil {
		return domain.ArtifactManifest{}, err
	}
	return domain.ArtifactManifest{
		JobID:          strProp(props, "job_id"),
		ProjectID:      strProp(props, "project_id"),
		Blocks:         jsonProp[[]domain.BlockStats](props, "blocks"),
		Tables:         jsonProp[[]domain.TableStats](props, "tables"),
		Visuals:        jsonProp[[]domain.Visual](props, "visuals"),
		TotalWordCount: intProp(props, "total_word_count"),
		TotalCitations: intProp(props, "total_citations"),
		Rigor:          domain.RigorLevel(strProp(props, "rigor")),
		CreatedAt:      timeProp(props, "created_at"),
	}, nil
}
