package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/engine/jobstore"
	"github.com/WessleyAI/wessley-mvp/engine/registry"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/google/uuid"
)

// maxUploadBytes bounds how large a multipart submission's file part may be.
const maxUploadBytes = 64 << 20 // 64MiB

type submitRequest struct {
	ProjectID  string            `json:"project_id"`
	Text       string            `json:"text,omitempty"`
	PDFPath    string            `json:"pdf_path,omitempty"`
	RigorLevel domain.RigorLevel `json:"rigor_level,omitempty"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// upload holds a saved multipart file part along with the bytes and hash
// computed while it was written to disk, so callers don't need to re-read it
// to record it as a seed file.
type upload struct {
	Path     string
	Filename string
	Hash     string
	Data     []byte
}

// NewSubmitHandler accepts a job submission as JSON or multipart/form-data
// and enqueues it for execution. A multipart upload is recorded as a seed
// file (idempotent by content hash) and tracked as an Ingestion.
func NewSubmitHandler(reg *registry.Registry, gs *graph.GraphStore, jobs *jobstore.Store, rt *runtime.Runtime, uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, up, err := parseSubmitRequest(r, uploadDir)
		if err != nil {
			writeError(w, err)
			return
		}
		if req.ProjectID == "" {
			writeError(w, domain.NewValidationError("project_id", "", domain.ErrUnknownProject))
			return
		}

		project, err := reg.GetProject(r.Context(), req.ProjectID)
		if err != nil {
			writeError(w, err)
			return
		}

		submission := domain.SubmitRequest{
			ProjectID:  req.ProjectID,
			Text:       req.Text,
			PDFPath:    req.PDFPath,
			RigorLevel: req.RigorLevel,
			HasUpload:  up != nil || req.PDFPath != "",
		}
		if submission.RigorLevel == "" {
			submission.RigorLevel = project.Rigor
		}

		var ingestionID string
		if up != nil {
			submission.PDFPath = up.Path
			submission.UploadName = up.Filename
			submission.UploadHash = up.Hash

			if _, err := reg.AddSeedFile(r.Context(), project.ID, up.Filename, up.Data); err != nil {
				writeError(w, err)
				return
			}

			ingestion, err := gs.Ingests.Create(r.Context(), domain.Ingestion{
				ID:          uuid.NewString(),
				ProjectID:   project.ID,
				Filename:    up.Filename,
				ContentHash: up.Hash,
				State:       domain.IngestionQueued,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			ingestionID = ingestion.ID
		}

		if err := domain.ValidateSubmission(submission); err != nil {
			writeError(w, err)
			return
		}

		job := domain.Job{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			IngestionID: ingestionID,
			Status:      domain.JobPending,
			InitialState: domain.InitialState{
				Request:        submission,
				ProjectContext: project.Snapshot(),
			},
			CreatedAt: time.Now(),
		}

		created, err := jobs.Create(r.Context(), job)
		if err != nil {
			writeError(w, err)
			return
		}

		if ingestionID != "" {
			if ingestion, err := gs.Ingests.Get(r.Context(), ingestionID); err == nil {
				ingestion.JobID = created.ID
				if _, err := gs.Ingests.Update(r.Context(), ingestion); err != nil {
					writeError(w, err)
					return
				}
			}
		}

		if err := rt.Submit(created.ID); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, submitResponse{JobID: created.ID})
	}
}

func parseSubmitRequest(r *http.Request, uploadDir string) (submitRequest, *upload, error) {
	contentType := r.Header.Get("Content-Type")
	if len(contentType) >= 19 && contentType[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return submitRequest{}, nil, domain.NewValidationError("body", "", fmt.Errorf("invalid multipart body: %w", err))
		}
		req := submitRequest{
			ProjectID:  r.FormValue("project_id"),
			Text:       r.FormValue("text"),
			RigorLevel: domain.RigorLevel(r.FormValue("rigor_level")),
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return req, nil, nil // no file part: text-only submission
		}
		defer file.Close()

		up, err := saveUpload(uploadDir, req.ProjectID, header.Filename, file)
		if err != nil {
			return submitRequest{}, nil, fmt.Errorf("save upload: %w", err)
		}
		return req, up, nil
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return submitRequest{}, nil, domain.NewValidationError("body", "", fmt.Errorf("invalid request body: %w", err))
	}
	return req, nil, nil
}

func saveUpload(uploadDir, projectID, filename string, src io.Reader) (*upload, error) {
	hasher := sha256.New()
	data, err := io.ReadAll(io.TeeReader(src, hasher))
	if err != nil {
		return nil, err
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	dir := filepath.Join(uploadDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, hash+"-"+filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return &upload{Path: path, Filename: filename, Hash: hash, Data: data}, nil
}

type statusResponse struct {
	Status       domain.JobStatus `json:"status"`
	ProgressPct  int              `json:"progress_pct"`
	CurrentStage string           `json:"current_stage,omitempty"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Error        string           `json:"error,omitempty"`
}

func toStatusResponse(job domain.Job) statusResponse {
	updated := job.CreatedAt
	if job.FinishedAt != nil {
		updated = *job.FinishedAt
	} else if job.StartedAt != nil {
		updated = *job.StartedAt
	}
	return statusResponse{
		Status:       job.Status,
		ProgressPct:  job.ProgressPct,
		CurrentStage: job.CurrentStage,
		StartedAt:    job.StartedAt,
		UpdatedAt:    updated,
		Error:        job.Error,
	}
}

// NewStatusHandler reports a job's current status snapshot.
func NewStatusHandler(jobs *jobstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("job_id")
		job, err := jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStatusResponse(job))
	}
}

// heartbeatInterval is how often a comment frame is sent to keep an SSE
// connection alive through idle proxies.
const heartbeatInterval = 15 * time.Second

// NewStatusStreamHandler streams status snapshots over text/event-stream
// until the job reaches a terminal status or the client disconnects.
func NewStatusStreamHandler(jobs *jobstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("job_id")
		job, err := jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, &domain.Internal{Cause: fmt.Errorf("streaming unsupported")})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		writeEvent := func(j domain.Job) {
			data, _ := json.Marshal(toStatusResponse(j))
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		writeEvent(job)
		if job.Status.IsTerminal() {
			return
		}

		updates, cancel := jobs.StreamUpdates(id)
		defer cancel()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				flusher.Flush()
			case j, ok := <-updates:
				if !ok {
					return
				}
				writeEvent(j)
				if j.Status.IsTerminal() {
					return
				}
			}
		}
	}
}

type resultResponse struct {
	ExtractedJSON    domain.ExtractedJSON     `json:"extracted_json"`
	ArtifactManifest *domain.ArtifactManifest `json:"artifact_manifest,omitempty"`
}

type resultErrorResponse struct {
	Error string `json:"error"`
}

// NewResultHandler implements the job-result polling contract: 404 if the
// job is unknown, 202 while it is PENDING/QUEUED/RUNNING, 500 with the
// failing stage's message on FAILED, 500 with "cancelled" on CANCELLED, and
// 200 with the extracted claims and manifest on SUCCEEDED.
func NewResultHandler(jobs *jobstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("job_id")
		job, err := jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		switch job.Status {
		case domain.JobPending, domain.JobQueued, domain.JobRunning:
			writeJSON(w, http.StatusAccepted, toStatusResponse(job))
		case domain.JobFailed:
			writeJSON(w, http.StatusInternalServerError, resultErrorResponse{Error: job.Error})
		case domain.JobCancelled:
			writeJSON(w, http.StatusInternalServerError, resultErrorResponse{Error: "cancelled"})
		case domain.JobSucceeded:
			if job.Result == nil {
				writeJSON(w, http.StatusOK, resultResponse{})
				return
			}
			writeJSON(w, http.StatusOK, resultResponse{
				ExtractedJSON:    job.Result.ExtractedJSON,
				ArtifactManifest: job.Result.ArtifactManifest,
			})
		default:
			writeJSON(w, http.StatusAccepted, toStatusResponse(job))
		}
	}
}
