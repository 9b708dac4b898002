package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/google/uuid"
)

// hardBanTerms are assertions the critic refuses to let pass unflagged
// regardless of confidence, matched as case-insensitive substrings of the
// claim's subject, predicate, object and evidence.
var hardBanTerms = map[string]bool{
	"proves":          true,
	"proven":          true,
	"causes":          true,
	"guarantees":      true,
	"always":          true,
	"never fails":     true,
	"100% certain":    true,
	"definitively":    true,
}

// conflictNeighborhood is how many nearest neighbors the critic inspects
// per claim when looking for competing assertions.
const conflictNeighborhood = 5

// conflictSimilarityFloor is the minimum vector-search score two claims must
// share before they're considered close enough to be competing assertions.
const conflictSimilarityFloor = 0.85

// CriticStage scans accepted claims for policy violations and competing
// assertions; draft blocks are not inspected. It never fails the job: every internal error is
// logged and swallowed so a critic outage can't block publication.
var CriticStage = runtime.Stage{
	Name:   "Critic",
	Window: runtime.StageWindow{Low: 60, High: 75},
	Run:    runCritic,
}

func runCritic(ctx context.Context, sc *runtime.StageContext) error {
	total := len(sc.Claims)
	if total == 0 {
		sc.ReportProgress(100)
		return nil
	}

	for i, claim := range sc.Claims {
		if claim.Status != domain.ClaimAccepted {
			continue
		}

		if term, flagged := scanHardBan(claim); flagged {
			if err := flagClaim(ctx, sc, i, fmt.Sprintf("hard-banned term %q used without qualification", term)); err != nil {
				sc.Logger.Warn("critic: flag claim failed", "claim_id", claim.ID, "err", err)
			}
			continue
		}

		if err := detectConflict(ctx, sc, i); err != nil {
			sc.Logger.Warn("critic: conflict detection failed", "claim_id", claim.ID, "err", err)
		}

		if sc.Cancelled() {
			return nil
		}
		sc.ReportProgress((i + 1) * 100 / total)
	}
	return nil
}

func scanHardBan(claim domain.Claim) (string, bool) {
	text := strings.ToLower(claim.Subject + " " + claim.Predicate + " " + claim.Object + " " + claim.Evidence)
	for term := range hardBanTerms {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

func flagClaim(ctx context.Context, sc *runtime.StageContext, idx int, reason string) error {
	claim := sc.Claims[idx]
	if err := domain.ValidateClaimTransition(claim.Status, domain.ClaimFlagged, "Critic", claim.Provenance.Override); err != nil {
		return err
	}
	claim.Status = domain.ClaimFlagged
	claim.Provenance.FlaggedBy = "Critic"
	if claim.Conflict == nil {
		claim.Conflict = &domain.ConflictRecord{Summary: reason}
	} else {
		claim.Conflict.Summary = reason
	}

	updated, err := sc.Deps.Graph.Claims.Update(ctx, claim)
	if err != nil {
		return fmt.Errorf("persist flagged claim: %w", err)
	}
	sc.Claims[idx] = updated
	return nil
}

func detectConflict(ctx context.Context, sc *runtime.StageContext, idx int) error {
	claim := sc.Claims[idx]
	vecs, err := sc.Deps.Embed.Embed(ctx, []string{claim.Subject + " " + claim.Object}, 1)
	if err != nil || len(vecs) == 0 {
		return fmt.Errorf("embed: %w", err)
	}

	neighbors, err := sc.Deps.Vector.Search(ctx, vecs[0], conflictNeighborhood, claim.ProjectID)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	for _, n := range neighbors {
		if n.ClaimID == "" || n.ClaimID == claim.ID || n.Score < conflictSimilarityFloor {
			continue
		}
		if n.Object == claim.Object {
			continue // same assertion, not competing
		}

		edge := graph.ClaimEdge{
			ID:      uuid.NewString(),
			FromID:  claim.ID,
			ToID:    n.ClaimID,
			Type:    "CONFLICTS_WITH",
			Summary: fmt.Sprintf("%q vs %q on the same subject", claim.Object, n.Object),
		}
		if err := sc.Deps.Graph.SaveClaimEdge(ctx, edge); err != nil {
			return fmt.Errorf("save edge: %w", err)
		}

		return flagClaim(ctx, sc, idx, fmt.Sprintf("conflicts with claim %s: %s", n.ClaimID, edge.Summary))
	}
	return nil
}
