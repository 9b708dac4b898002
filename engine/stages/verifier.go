package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/WessleyAI/wessley-mvp/pkg/transport"
)

const verificationSchemaRegex = `\{\s*"confidence"\s*:\s*[0-9.]+\s*,\s*"rationale"\s*:\s*".*"\s*\}`

// acceptConfidence is the floor above which a verified claim is accepted
// outright. reviewFloor is the floor below which it is routed to human
// review instead of discarded; a pass that lands between the two stays
// Proposed, since it's neither confidently right nor clearly unsupported.
const (
	acceptConfidence = 0.75
	reviewFloor      = 0.5
)

type verificationResult struct {
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// VerifierStage re-checks every proposed claim against its evidence and
// moves it to Accepted or NeedsReview; a claim whose confidence falls
// between the two thresholds stays Proposed.
var VerifierStage = runtime.Stage{
	Name:   "Verifier",
	Window: runtime.StageWindow{Low: 40, High: 60},
	Run:    runVerifier,
}

func runVerifier(ctx context.Context, sc *runtime.StageContext) error {
	proposed := make([]int, 0, len(sc.Claims))
	for i, c := range sc.Claims {
		if c.Status == domain.ClaimProposed {
			proposed = append(proposed, i)
		}
	}
	if len(proposed) == 0 {
		sc.ReportProgress(100)
		return nil
	}

	for n, i := range proposed {
		claim := sc.Claims[i]
		prompt := buildVerificationPrompt(claim)

		raw, err := sc.Deps.Logic.Generate(ctx, prompt, verificationSchemaRegex, transport.SamplingParams{Temperature: 0})
		if err != nil {
			return fmt.Errorf("verifier: generate claim %s: %w", claim.ID, err)
		}

		var result verificationResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return fmt.Errorf("%w: verifier claim %s: %v", transport.ErrSchemaParse, claim.ID, err)
		}

		claim.Confidence = result.Confidence

		switch {
		case result.Confidence >= acceptConfidence:
			if err := domain.ValidateClaimTransition(claim.Status, domain.ClaimAccepted, "Verifier", claim.Provenance.Override); err != nil {
				return fmt.Errorf("verifier: claim %s: %w", claim.ID, err)
			}
			claim.Status = domain.ClaimAccepted
			claim.Provenance.VerifiedBy = "Verifier"
		case result.Confidence < reviewFloor:
			if err := domain.ValidateClaimTransition(claim.Status, domain.ClaimNeedsReview, "Verifier", claim.Provenance.Override); err != nil {
				return fmt.Errorf("verifier: claim %s: %w", claim.ID, err)
			}
			claim.Status = domain.ClaimNeedsReview
			claim.Provenance.VerifiedBy = "Verifier"
		}

		updated, err := sc.Deps.Graph.Claims.Update(ctx, claim)
		if err != nil {
			return fmt.Errorf("verifier: persist claim %s: %w", claim.ID, err)
		}
		sc.Claims[i] = updated

		sc.ReportProgress((n + 1) * 100 / len(proposed))
		if sc.Cancelled() {
			return nil
		}
	}
	return nil
}

func buildVerificationPrompt(claim domain.Claim) string {
	return fmt.Sprintf(
		"Claim: %s %s %s\nEvidence: %s\n\nRate your confidence (0-1) that this claim is fully supported by the evidence, with a brief rationale.",
		claim.Subject, claim.Predicate, claim.Object, claim.Evidence,
	)
}
