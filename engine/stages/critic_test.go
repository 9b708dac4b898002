package stages

import (
	"testing"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
)

func TestScanHardBan_Flags(t *testing.T) {
	claim := domain.Claim{
		Subject:   "the treatment",
		Predicate: "definitively causes",
		Object:    "faster healing",
	}
	term, flagged := scanHardBan(claim)
	if !flagged {
		t.Fatal("expected a hard-banned term to be detected")
	}
	if term != "definitively" && term != "causes" {
		t.Errorf("unexpected matched term %q", term)
	}
}

func TestScanHardBan_CleanClaimPasses(t *testing.T) {
	claim := domain.Claim{
		Subject:   "the treatment group",
		Predicate: "showed a reduction in",
		Object:    "recovery time",
		Evidence:  "observed across three independent trials",
	}
	if _, flagged := scanHardBan(claim); flagged {
		t.Fatal("expected a hedged claim to pass the hard-ban scan")
	}
}

func TestScanHardBan_CaseInsensitive(t *testing.T) {
	claim := domain.Claim{Object: "This PROVES the hypothesis"}
	if _, flagged := scanHardBan(claim); !flagged {
		t.Fatal("expected case-insensitive match on a hard-banned term")
	}
}
