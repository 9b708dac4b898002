package stages

import (
	"strings"
	"testing"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
)

func TestBuildVerificationPrompt_IncludesClaimAndEvidence(t *testing.T) {
	claim := domain.Claim{
		Subject:   "annealed cells",
		Predicate: "show reduced drift at",
		Object:    "85C",
		Evidence:  "three independent trials measured drift under 2%",
	}
	prompt := buildVerificationPrompt(claim)
	for _, want := range []string{claim.Subject, claim.Predicate, claim.Object, claim.Evidence} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestConfidenceThresholds_Ordering(t *testing.T) {
	if !(reviewFloor < acceptConfidence) {
		t.Fatalf("expected reviewFloor (%v) below acceptConfidence (%v)", reviewFloor, acceptConfidence)
	}
}
