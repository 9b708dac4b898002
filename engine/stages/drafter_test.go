package stages

import (
	"strings"
	"testing"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
)

func TestGroupAcceptedClaims_OnlyAcceptedAndKnownRQ(t *testing.T) {
	rqs := []string{"Does X affect Y?"}
	claims := []domain.Claim{
		{ID: "1", Status: domain.ClaimAccepted, ResearchQuestion: "Does X affect Y?"},
		{ID: "2", Status: domain.ClaimProposed, ResearchQuestion: "Does X affect Y?"},
		{ID: "3", Status: domain.ClaimAccepted, ResearchQuestion: "unrelated question"},
	}
	grouped := groupAcceptedClaims(claims, rqs)
	if len(grouped) != 1 {
		t.Fatalf("expected exactly one research question group, got %d", len(grouped))
	}
	got := grouped["Does X affect Y?"]
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected only claim 1 in the group, got %+v", got)
	}
}

func TestClaimIDs(t *testing.T) {
	claims := []domain.Claim{{ID: "a"}, {ID: "b"}}
	ids := claimIDs(claims)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestShouldRewriteTone_RequiresBothConditions(t *testing.T) {
	cases := []struct {
		rigor domain.RigorLevel
		mode  runtime.ToneMode
		want  bool
	}{
		{domain.RigorConservative, runtime.ToneModeRewrite, true},
		{domain.RigorConservative, runtime.ToneModePreserve, false},
		{domain.RigorExploratory, runtime.ToneModeRewrite, false},
		{domain.RigorExploratory, runtime.ToneModePreserve, false},
	}
	for _, c := range cases {
		sc := &runtime.StageContext{
			Project: domain.ProjectSnapshot{Rigor: c.rigor},
			Deps:    runtime.Deps{ToneMode: c.mode},
		}
		if got := shouldRewriteTone(sc); got != c.want {
			t.Errorf("rigor=%s mode=%s: got %v, want %v", c.rigor, c.mode, got, c.want)
		}
	}
}

func TestRewriteTone_PreservesCitationTokens(t *testing.T) {
	text := "The treatment definitively proves recovery [@smith2020] and always works [@doe-2021]."
	got := rewriteTone(text)
	if !strings.Contains(got, "[@smith2020]") || !strings.Contains(got, "[@doe-2021]") {
		t.Fatalf("citation tokens should be preserved verbatim, got %q", got)
	}
	if strings.Contains(strings.ToLower(got), "definitively") || strings.Contains(strings.ToLower(got), "always") {
		t.Fatalf("hard-banned terms outside citations should be softened, got %q", got)
	}
}

func TestRewriteTone_NoCitationsStillSoftens(t *testing.T) {
	got := rewriteTone("This guarantees success.")
	if strings.Contains(strings.ToLower(got), "guarantees") {
		t.Fatalf("expected hard-banned term to be softened, got %q", got)
	}
}
