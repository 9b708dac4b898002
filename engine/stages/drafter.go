package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/WessleyAI/wessley-mvp/pkg/transport"
	"github.com/google/uuid"
)

// citationToken matches a bracketed citation key like [@smith2020] so a
// tone rewrite can preserve it verbatim instead of paraphrasing it away.
var citationToken = regexp.MustCompile(`\[@[\w-]+\]`)

// DrafterStage turns accepted claims into manuscript blocks, one per
// research question, optionally softening hard-banned language.
var DrafterStage = runtime.Stage{
	Name:   "Drafter",
	Window: runtime.StageWindow{Low: 75, High: 95},
	Run:    runDrafter,
}

func runDrafter(ctx context.Context, sc *runtime.StageContext) error {
	byRQ := groupAcceptedClaims(sc.Claims, sc.Project.ResearchQuestions)
	if len(byRQ) == 0 {
		sc.ReportProgress(100)
		return nil
	}

	i := 0
	for _, rq := range sc.Project.ResearchQuestions {
		claims := byRQ[rq]
		if len(claims) == 0 {
			i++
			continue
		}

		resp, err := sc.Deps.Draft.Chat(ctx, buildDraftRequest(sc.Project, rq, claims))
		if err != nil {
			return fmt.Errorf("drafter: chat for %q: %w", rq, err)
		}

		text := resp.Content
		if shouldRewriteTone(sc) {
			text = rewriteTone(text)
		}

		block := domain.Block{
			ID:           uuid.NewString(),
			ProjectID:    sc.Project.ID,
			Text:         text,
			ClaimIDs:     claimIDs(claims),
			CitationKeys: citationToken.FindAllString(text, -1),
			Status:       domain.BlockDraft,
			Version:      1,
			Rigor:        sc.Project.Rigor,
		}

		if _, err := sc.Deps.Graph.Blocks.Create(ctx, block); err != nil {
			return fmt.Errorf("drafter: persist block: %w", err)
		}
		sc.Blocks = append(sc.Blocks, block)

		i++
		sc.ReportProgress(i * 100 / len(sc.Project.ResearchQuestions))
		if sc.Cancelled() {
			return nil
		}
	}
	return nil
}

func groupAcceptedClaims(claims []domain.Claim, rqs []string) map[string][]domain.Claim {
	byRQ := make(map[string][]domain.Claim)
	known := make(map[string]bool, len(rqs))
	for _, rq := range rqs {
		known[rq] = true
	}
	for _, c := range claims {
		if c.Status != domain.ClaimAccepted {
			continue
		}
		rq := c.ResearchQuestion
		if !known[rq] {
			continue
		}
		byRQ[rq] = append(byRQ[rq], c)
	}
	return byRQ
}

func claimIDs(claims []domain.Claim) []string {
	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.ID
	}
	return ids
}

// shouldRewriteTone implements the conjunctive gate: only conservative-rigor
// projects, only when the deployment's tone policy is set to rewrite.
func shouldRewriteTone(sc *runtime.StageContext) bool {
	return sc.Project.Rigor == domain.RigorConservative && sc.Deps.ToneMode == runtime.ToneModeRewrite
}

// rewriteTone softens hard-banned language while leaving citation tokens
// untouched — preserve what matches the pattern, rewrite the rest.
func rewriteTone(text string) string {
	spans := citationToken.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return softenHardBanTerms(text)
	}

	var out strings.Builder
	last := 0
	for _, span := range spans {
		out.WriteString(softenHardBanTerms(text[last:span[0]]))
		out.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	out.WriteString(softenHardBanTerms(text[last:]))
	return out.String()
}

func softenHardBanTerms(segment string) string {
	result := segment
	for term := range hardBanTerms {
		replacement := "suggests"
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		result = re.ReplaceAllString(result, replacement)
	}
	return result
}

func buildDraftRequest(project domain.ProjectSnapshot, rq string, claims []domain.Claim) transport.ChatRequest {
	var evidence strings.Builder
	for _, c := range claims {
		fmt.Fprintf(&evidence, "- %s %s %s [@%s]\n", c.Subject, c.Predicate, c.Object, c.ID)
	}

	return transport.ChatRequest{
		Messages: []transport.ChatMessage{
			{Role: "system", Content: fmt.Sprintf("You are drafting a manuscript section for the thesis: %s. Rigor: %s.", project.Thesis, project.Rigor)},
			{Role: "user", Content: fmt.Sprintf("Research question: %s\n\nAccepted claims:\n%s\nWrite a paragraph answering the question, citing each claim with its [@id] token.", rq, evidence.String())},
		},
		Temperature: 0.3,
	}
}
