package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// injectionPatterns are fragments that should never appear in text submitted
// for extraction — prompt-injection and markup-injection attempts smuggled
// into a thesis, submission body, or claim evidence field.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore\s+(all\s+)?(previous|prior|above)\s+instructions\b`),
	regexp.MustCompile(`(?i)\bsystem\s*:\s*you\s+are\b`),
	regexp.MustCompile(`(?i)\$\{.*\}`),            // template injection
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL operator injection
}

const minSubmissionLength = 20

// ValidateProjectInput validates a project before it is created or updated.
func ValidateProjectInput(p Project) error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", p.Title, ErrEmptyTitle)
	}
	if strings.TrimSpace(p.Thesis) == "" {
		return NewValidationError("thesis", p.Thesis, ErrEmptyThesis)
	}
	if len(p.ResearchQuestions) == 0 {
		return NewValidationError("research_questions", "", ErrNoResearchQuestions)
	}
	if !ValidRigorLevels[p.Rigor] {
		return NewValidationError("rigor", string(p.Rigor), ErrInvalidRigor)
	}
	if err := checkInjection("thesis", p.Thesis); err != nil {
		return err
	}
	return nil
}

// ValidateSubmission validates a job submission request.
func ValidateSubmission(req SubmitRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" && !req.HasUpload {
		return NewValidationError("text", "", ErrSubmissionEmpty)
	}
	if text != "" {
		if utf8.RuneCountInString(text) < minSubmissionLength {
			return NewValidationError("text", text, ErrSubmissionTooShort)
		}
		if err := checkInjection("text", text); err != nil {
			return err
		}
	}
	if req.RigorLevel != "" && !ValidRigorLevels[req.RigorLevel] {
		return NewValidationError("rigor_level", string(req.RigorLevel), ErrInvalidRigor)
	}
	return nil
}

func checkInjection(field, text string) error {
	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return NewValidationError(field, text, ErrSubmissionInjection)
		}
	}
	return nil
}

// ValidateClaimTransition enforces the Proposed→Accepted/Flagged/NeedsReview
// and Accepted→Flagged ontology. stage is the name of the stage requesting
// the transition, and override is the Provenance.Override value already set
// on the claim (if any).
func ValidateClaimTransition(from, to ClaimStatus, stage string, override string) error {
	if from == to {
		return nil
	}
	switch {
	case from == ClaimProposed && to == ClaimAccepted:
		if stage != "Verifier" {
			return NewValidationError("status", string(to), ErrInvalidClaimTransition)
		}
	case from == ClaimProposed && to == ClaimNeedsReview:
		if stage != "Verifier" {
			return NewValidationError("status", string(to), ErrInvalidClaimTransition)
		}
	case from == ClaimProposed && to == ClaimFlagged:
		if stage != "Critic" {
			return NewValidationError("status", string(to), ErrInvalidClaimTransition)
		}
	case from == ClaimFlagged && to == ClaimAccepted:
		if strings.TrimSpace(override) == "" {
			return NewValidationError("provenance.override", override, ErrMissingOverride)
		}
	case from == ClaimAccepted && to == ClaimFlagged:
		if stage != "Critic" {
			return NewValidationError("status", string(to), ErrInvalidClaimTransition)
		}
	default:
		return NewValidationError("status", string(to), ErrInvalidClaimTransition)
	}
	return nil
}
