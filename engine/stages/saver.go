package stages

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/WessleyAI/wessley-mvp/pkg/natsutil"
)

const artifactManifestFailedSubject = "telemetry.artifact_manifest_failed"

type manifestFailure struct {
	JobID     string `json:"job_id"`
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason"`
}

// SaverStage assembles and persists the artifact manifest. It never fails
// the job: a graph or filesystem write failure here is telemetered instead.
var SaverStage = runtime.Stage{
	Name:   "Saver",
	Window: runtime.StageWindow{Low: 95, High: 100},
	Run:    runSaver,
}

func runSaver(ctx context.Context, sc *runtime.StageContext) error {
	manifest := buildManifest(sc)
	sc.Manifest = &manifest

	if _, err := sc.Deps.Graph.Manifests.Create(ctx, manifest); err != nil {
		reportSaveFailure(ctx, sc, "graph write: "+err.Error())
	}

	if err := writeManifestFile(sc.Deps.ArtifactRoot, manifest); err != nil {
		reportSaveFailure(ctx, sc, "filesystem write: "+err.Error())
	}

	completeIngestion(ctx, sc)

	sc.ReportProgress(100)
	return nil
}

// completeIngestion advances this job's Ingestion record to Completed, if
// one was created at submission time.
func completeIngestion(ctx context.Context, sc *runtime.StageContext) {
	if sc.IngestionID == "" {
		return
	}
	ingestion, err := sc.Deps.Graph.Ingests.Get(ctx, sc.IngestionID)
	if err != nil {
		sc.Logger.Warn("saver: load ingestion failed", "ingestion_id", sc.IngestionID, "err", err)
		return
	}
	ingestion.State = domain.IngestionCompleted
	ingestion.ProgressPct = 100
	if _, err := sc.Deps.Graph.Ingests.Update(ctx, ingestion); err != nil {
		sc.Logger.Warn("saver: update ingestion failed", "ingestion_id", sc.IngestionID, "err", err)
	}
}

func buildManifest(sc *runtime.StageContext) domain.ArtifactManifest {
	blocks := make([]domain.BlockStats, 0, len(sc.Blocks))
	totalWords := 0
	totalCitations := 0
	for _, b := range sc.Blocks {
		words := wordCount(b.Text)
		totalWords += words
		totalCitations += len(b.CitationKeys)
		blocks = append(blocks, domain.BlockStats{
			BlockID:            b.ID,
			WordCount:          words,
			CitationCount:      len(b.CitationKeys),
			SupportingClaimIDs: b.ClaimIDs,
		})
	}

	return domain.ArtifactManifest{
		JobID:          sc.JobID,
		ProjectID:      sc.Project.ID,
		Blocks:         blocks,
		TotalWordCount: totalWords,
		TotalCitations: totalCitations,
		Rigor:          sc.Project.Rigor,
		CreatedAt:      time.Now(),
	}
}

func writeManifestFile(artifactRoot string, manifest domain.ArtifactManifest) error {
	if artifactRoot == "" {
		return nil
	}
	dir := filepath.Join(artifactRoot, manifest.ProjectID, manifest.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "artifact_manifest.json"), data, 0o644)
}

func reportSaveFailure(ctx context.Context, sc *runtime.StageContext, reason string) {
	sc.Logger.Error("saver: manifest persistence failed", "reason", reason)
	if sc.Deps.Metrics != nil {
		sc.Deps.Metrics.Counter("artifact_manifest_failures_total", "artifact manifest persistence failures").Inc()
	}
	if sc.Deps.Nats != nil {
		_ = natsutil.Publish(ctx, sc.Deps.Nats, artifactManifestFailedSubject, manifestFailure{
			JobID:     sc.JobID,
			ProjectID: sc.Project.ID,
			Reason:    reason,
		})
	}
}
