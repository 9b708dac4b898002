// Package domain defines the core research-artifact types — Project, Job,
// Ingestion, Claim, Block, Manifest — and the invariants that guard their
// construction and state transitions.
package domain

import "time"

// RigorLevel controls tone enforcement and precision strictness for a project.
type RigorLevel string

const (
	RigorExploratory  RigorLevel = "exploratory"
	RigorConservative RigorLevel = "conservative"
)

// ValidRigorLevels is the set of recognised rigor levels.
var ValidRigorLevels = map[RigorLevel]bool{
	RigorExploratory:  true,
	RigorConservative: true,
}

// SeedFile is one source document attached to a project.
type SeedFile struct {
	Filename string    `json:"filename"`
	Hash     string    `json:"hash"`
	AddedAt  time.Time `json:"added_at"`
}

// Project is the process-independent research context a job is submitted against.
type Project struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Thesis            string     `json:"thesis"`
	ResearchQuestions []string   `json:"research_questions"`
	AntiScope         []string   `json:"anti_scope"`
	TargetJournal     string     `json:"target_journal,omitempty"`
	SeedFiles         []SeedFile `json:"seed_files"`
	Rigor             RigorLevel `json:"rigor"`
	Tags              []string   `json:"tags"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ProjectSnapshot is the immutable slice of a Project captured into a job's
// initial state at submission time. Later edits to the project never reach
// an in-flight job.
type ProjectSnapshot struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Thesis            string     `json:"thesis"`
	ResearchQuestions []string   `json:"research_questions"`
	AntiScope         []string   `json:"anti_scope"`
	TargetJournal     string     `json:"target_journal,omitempty"`
	Rigor             RigorLevel `json:"rigor"`
	Tags              []string   `json:"tags"`
}

// Snapshot captures the current project state for embedding into a job.
func (p Project) Snapshot() ProjectSnapshot {
	return ProjectSnapshot{
		ID:                p.ID,
		Title:             p.Title,
		Thesis:            p.Thesis,
		ResearchQuestions: append([]string(nil), p.ResearchQuestions...),
		AntiScope:         append([]string(nil), p.AntiScope...),
		TargetJournal:     p.TargetJournal,
		Rigor:             p.Rigor,
		Tags:              append([]string(nil), p.Tags...),
	}
}

// IngestionState is the user-facing progress handle for one uploaded document.
type IngestionState string

const (
	IngestionQueued     IngestionState = "Queued"
	IngestionExtracting IngestionState = "Extracting"
	IngestionMapping    IngestionState = "Mapping"
	IngestionVerifying  IngestionState = "Verifying"
	IngestionCompleted  IngestionState = "Completed"
	IngestionFailed     IngestionState = "Failed"
)

// Confidence is a coarse-grained extraction confidence label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// FirstGlance is the quick structural summary produced during extraction.
type FirstGlance struct {
	Pages           int     `json:"pages"`
	TablesDetected  int     `json:"tables_detected"`
	FiguresDetected int     `json:"figures_detected"`
	TextDensity     float64 `json:"text_density"`
}

// Ingestion tracks one uploaded document's progress, independent of job ids.
type Ingestion struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Filename    string         `json:"filename"`
	ContentHash string         `json:"content_hash"`
	State       IngestionState `json:"state"`
	ProgressPct int            `json:"progress_pct"`
	FirstGlance *FirstGlance   `json:"first_glance,omitempty"`
	Confidence  *Confidence    `json:"confidence,omitempty"`
	Error       string         `json:"error,omitempty"`
	JobID       string         `json:"job_id,omitempty"`
}

// JobStatus is a status along the job's state-transition DAG.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// SubmitRequest is the raw payload a job was submitted with.
type SubmitRequest struct {
	ProjectID   string     `json:"project_id"`
	Text        string     `json:"text,omitempty"`
	PDFPath     string     `json:"pdf_path,omitempty"`
	RigorLevel  RigorLevel `json:"rigor_level,omitempty"`
	HasUpload   bool       `json:"has_upload"`
	UploadName  string     `json:"upload_name,omitempty"`
	UploadHash  string     `json:"upload_hash,omitempty"`
	DeadlineSec int        `json:"deadline_sec,omitempty"`
}

// InitialState is the job's immutable submission snapshot.
type InitialState struct {
	Request        SubmitRequest   `json:"request"`
	ProjectContext ProjectSnapshot `json:"project_context"`
}

// ExtractedJSON is the stable result contract: triples is always present.
type ExtractedJSON struct {
	Triples []Claim `json:"triples"`
}

// JobResult is populated only once a job reaches SUCCEEDED.
type JobResult struct {
	ExtractedJSON    ExtractedJSON     `json:"extracted_json"`
	ArtifactManifest *ArtifactManifest `json:"artifact_manifest,omitempty"`
}

// Job is a single orchestrated workflow run.
type Job struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	IngestionID  string       `json:"ingestion_id,omitempty"`
	Status       JobStatus    `json:"status"`
	CurrentStage string       `json:"current_stage,omitempty"`
	ProgressPct  int          `json:"progress_pct"`
	InitialState InitialState `json:"initial_state"`
	Result       *JobResult   `json:"result,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// ClaimStatus is a claim's position in the Proposed→Accepted/Flagged ontology.
type ClaimStatus string

const (
	ClaimProposed    ClaimStatus = "Proposed"
	ClaimAccepted    ClaimStatus = "Accepted"
	ClaimFlagged     ClaimStatus = "Flagged"
	ClaimNeedsReview ClaimStatus = "NeedsReview"
)

// SourcePointer anchors a claim or block to the coordinates it came from.
type SourcePointer struct {
	DocHash string     `json:"doc_hash"`
	Page    int        `json:"page"`
	BBox    [4]float64 `json:"bbox,omitempty"`
	Snippet string     `json:"snippet"`
}

// Provenance names the stage (or null) that proposed, verified, or flagged a claim.
type Provenance struct {
	ProposedBy string `json:"proposed_by,omitempty"`
	VerifiedBy string `json:"verified_by,omitempty"`
	FlaggedBy  string `json:"flagged_by,omitempty"`
	// Override records a human/critic override that re-accepted a
	// previously Flagged claim; required before Flagged→Accepted.
	Override string `json:"override,omitempty"`
}

// ConflictRecord explains two claims that compete over the same assertion.
type ConflictRecord struct {
	Summary    string        `json:"summary"`
	SourceA    SourcePointer `json:"source_a"`
	SourceB    SourcePointer `json:"source_b"`
	ClaimTextA string        `json:"claim_text_a"`
	ClaimTextB string        `json:"claim_text_b"`
}

// Claim is a subject-predicate-object assertion with evidence and provenance.
type Claim struct {
	ID               string          `json:"id"`
	ProjectID        string          `json:"project_id"`
	Subject          string          `json:"subject"`
	Predicate        string          `json:"predicate"`
	Object           string          `json:"object"`
	Confidence       float64         `json:"confidence"`
	Evidence         string          `json:"evidence"`
	Source           SourcePointer   `json:"source"`
	Status           ClaimStatus     `json:"status"`
	Provenance       Provenance      `json:"provenance"`
	ResearchQuestion string          `json:"research_question,omitempty"`
	CitationKeys     []string        `json:"citation_keys,omitempty"`
	Conflict         *ConflictRecord `json:"conflict,omitempty"`
}

// BlockStatus tracks a manuscript block's lifecycle.
type BlockStatus string

const (
	BlockDraft      BlockStatus = "draft"
	BlockAccepted   BlockStatus = "accepted"
	BlockSuperseded BlockStatus = "superseded"
)

// Block is one drafted manuscript unit (paragraph, table narrative, caption).
type Block struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	Text         string      `json:"text"`
	ClaimIDs     []string    `json:"claim_ids"`
	CitationKeys []string    `json:"citation_keys,omitempty"`
	Status       BlockStatus `json:"status"`
	Version      int         `json:"version"`
	Rigor        RigorLevel  `json:"rigor"`
}

// BlockStats summarizes one drafted block for the artifact manifest.
type BlockStats struct {
	BlockID            string   `json:"block_id"`
	WordCount          int      `json:"word_count"`
	CitationCount      int      `json:"citation_count"`
	ToneFlags          []string `json:"tone_flags,omitempty"`
	SupportingClaimIDs []string `json:"supporting_claim_ids"`
}

// TableStats summarizes one drafted table for the artifact manifest.
type TableStats struct {
	TableID        string   `json:"table_id"`
	PrecisionFlags []string `json:"precision_flags,omitempty"`
	UnitsVerified  bool     `json:"units_verified"`
}

// Visual describes a figure or table placed in the manuscript.
type Visual struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "figure" | "table"
	Caption string `json:"caption,omitempty"`
}

// ArtifactManifest is the terminal per-job summary of produced artifacts.
type ArtifactManifest struct {
	JobID          string       `json:"job_id"`
	ProjectID      string       `json:"project_id"`
	Blocks         []BlockStats `json:"blocks"`
	Tables         []TableStats `json:"tables"`
	Visuals        []Visual     `json:"visuals"`
	TotalWordCount int          `json:"total_word_count"`
	TotalCitations int          `json:"total_citations"`
	Rigor          RigorLevel   `json:"rigor"`
	CreatedAt      time.Time    `json:"created_at"`
}
