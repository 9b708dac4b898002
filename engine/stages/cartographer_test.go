package stages

import (
	"strings"
	"testing"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
)

func TestClaimIDFor_Deterministic(t *testing.T) {
	a := claimIDFor("proj-1", "cell", "degrades at", "85C")
	b := claimIDFor("proj-1", "cell", "degrades at", "85C")
	if a != b {
		t.Fatalf("expected the same key to produce the same id, got %q and %q", a, b)
	}
}

func TestClaimIDFor_DistinctInputs(t *testing.T) {
	a := claimIDFor("proj-1", "cell", "degrades at", "85C")
	b := claimIDFor("proj-1", "cell", "degrades at", "90C")
	if a == b {
		t.Fatalf("expected different objects to produce different ids, got %q for both", a)
	}
}

func TestClaimIDFor_ScopedByProject(t *testing.T) {
	a := claimIDFor("proj-1", "cell", "degrades at", "85C")
	b := claimIDFor("proj-2", "cell", "degrades at", "85C")
	if a == b {
		t.Fatal("expected the same triple under different projects to produce different ids")
	}
}

func TestResolveResearchQuestion_ExactMatch(t *testing.T) {
	rqs := []string{"Does anneal time matter?", "Does cell thickness matter?"}
	got := resolveResearchQuestion(rqs, "Does cell thickness matter?")
	if got != "Does cell thickness matter?" {
		t.Fatalf("expected exact match, got %q", got)
	}
}

func TestResolveResearchQuestion_CaseInsensitiveMatch(t *testing.T) {
	rqs := []string{"Does anneal time matter?"}
	got := resolveResearchQuestion(rqs, "DOES ANNEAL TIME MATTER?")
	if got != "Does anneal time matter?" {
		t.Fatalf("expected case-insensitive match, got %q", got)
	}
}

func TestResolveResearchQuestion_UnrecognisedFallsBackToFirst(t *testing.T) {
	rqs := []string{"Does anneal time matter?", "Does cell thickness matter?"}
	got := resolveResearchQuestion(rqs, "something unrelated")
	if got != rqs[0] {
		t.Fatalf("expected fallback to first research question, got %q", got)
	}
}

func TestResolveResearchQuestion_NoResearchQuestions(t *testing.T) {
	if got := resolveResearchQuestion(nil, "anything"); got != "" {
		t.Fatalf("expected empty string with no research questions, got %q", got)
	}
}

func TestBuildCartographerPrompt_IncludesContext(t *testing.T) {
	project := domain.ProjectSnapshot{
		Thesis:            "Anneal time predicts degradation.",
		ResearchQuestions: []string{"Does anneal time matter?"},
		AntiScope:         []string{"manufacturing defects"},
		Rigor:             domain.RigorConservative,
	}
	prompt := buildCartographerPrompt(project, "cells annealed for 4 hours showed less drift")
	for _, want := range []string{project.Thesis, "Does anneal time matter?", "manufacturing defects", "conservative", "annealed for 4 hours"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
