package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/WessleyAI/wessley-mvp/engine/semantic"
	"github.com/WessleyAI/wessley-mvp/pkg/transport"
	"github.com/google/uuid"
)

// claimSchemaRegex constrains the cartographer's generation to a JSON object
// holding a "triples" array of subject/predicate/object claims.
const claimSchemaRegex = `\{\s*"triples"\s*:\s*\[.*\]\s*\}`

type extractedTriple struct {
	Subject          string  `json:"subject"`
	Predicate        string  `json:"predicate"`
	Object           string  `json:"object"`
	Confidence       float64 `json:"confidence"`
	Evidence         string  `json:"evidence"`
	ResearchQuestion string  `json:"research_question"`
}

type extractedTriples struct {
	Triples []extractedTriple `json:"triples"`
}

// claimIDFor derives a stable id so re-extracting the same document doesn't
// create duplicate claims.
func claimIDFor(projectID, subject, predicate, object string) string {
	key := projectID + "|" + subject + "|" + predicate + "|" + object
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// CartographerStage builds the knowledge graph of candidate claims from the
// ingested document text.
var CartographerStage = runtime.Stage{
	Name:   "Cartographer",
	Window: runtime.StageWindow{Low: 15, High: 40},
	Run:    runCartographer,
}

func runCartographer(ctx context.Context, sc *runtime.StageContext) error {
	chunks := chunkText(sc.DocText, defaultChunkSize, defaultOverlap)
	if len(chunks) == 0 {
		sc.ReportProgress(100)
		return nil
	}

	for i, chunk := range chunks {
		prompt := buildCartographerPrompt(sc.Project, chunk.Text)
		raw, err := sc.Deps.Logic.Generate(ctx, prompt, claimSchemaRegex, transport.SamplingParams{Temperature: 0.1})
		if err != nil {
			return fmt.Errorf("cartographer: generate chunk %d: %w", i, err)
		}

		var extracted extractedTriples
		if err := json.Unmarshal([]byte(raw), &extracted); err != nil {
			return fmt.Errorf("%w: cartographer chunk %d: %v", transport.ErrSchemaParse, i, err)
		}

		for _, t := range extracted.Triples {
			claim := domain.Claim{
				ID:               claimIDFor(sc.Project.ID, t.Subject, t.Predicate, t.Object),
				ProjectID:        sc.Project.ID,
				Subject:          t.Subject,
				Predicate:        t.Predicate,
				Object:           t.Object,
				Confidence:       t.Confidence,
				Evidence:         t.Evidence,
				Source:           domain.SourcePointer{Snippet: chunk.Text},
				Status:           domain.ClaimProposed,
				Provenance:       domain.Provenance{ProposedBy: "Cartographer"},
				ResearchQuestion: resolveResearchQuestion(sc.Project.ResearchQuestions, t.ResearchQuestion),
			}

			persist := sc.Deps.Graph.Claims.Create
			if _, err := sc.Deps.Graph.Claims.Get(ctx, claim.ID); err == nil {
				persist = sc.Deps.Graph.Claims.Update
			}
			if _, err := persist(ctx, claim); err != nil {
				return fmt.Errorf("cartographer: persist claim: %w", err)
			}
			sc.Claims = append(sc.Claims, claim)

			if err := embedAndUpsertClaim(ctx, sc, claim); err != nil {
				sc.Logger.Warn("cartographer: embed claim failed", "claim_id", claim.ID, "err", err)
			}
		}

		sc.ReportProgress((i + 1) * 100 / len(chunks))
		if sc.Cancelled() {
			return nil
		}
	}
	return nil
}

func embedAndUpsertClaim(ctx context.Context, sc *runtime.StageContext, claim domain.Claim) error {
	vecs, err := sc.Deps.Embed.Embed(ctx, []string{claim.Subject + " " + claim.Object}, 1)
	if err != nil || len(vecs) == 0 {
		return fmt.Errorf("embed: %w", err)
	}
	return sc.Deps.Vector.Upsert(ctx, []semantic.ClaimEmbedding{{
		ClaimID:   claim.ID,
		ProjectID: claim.ProjectID,
		Embedding: vecs[0],
		Payload: map[string]any{
			"subject":           claim.Subject,
			"object":            claim.Object,
			"predicate":         claim.Predicate,
			"research_question": claim.ResearchQuestion,
		},
	}})
}

func buildCartographerPrompt(project domain.ProjectSnapshot, chunk string) string {
	return fmt.Sprintf(
		"Thesis: %s\nResearch questions: %v\nAnti-scope: %v\nRigor: %s\n\nExtract subject-predicate-object claims with evidence from the following text. "+
			"For each claim, set research_question to the exact text of whichever research question above it bears on, or \"\" if none applies:\n%s",
		project.Thesis, project.ResearchQuestions, project.AntiScope, project.Rigor, chunk,
	)
}

// resolveResearchQuestion snaps the model's free-text answer to the project's
// actual research-question strings, since the drafter groups claims by exact
// match. An unrecognised answer falls back to the first research question
// rather than silently dropping the claim from every draft block.
func resolveResearchQuestion(rqs []string, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	for _, rq := range rqs {
		if strings.EqualFold(rq, candidate) {
			return rq
		}
	}
	if len(rqs) > 0 {
		return rqs[0]
	}
	return ""
}
