package stages

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
)

func TestBuildManifest_AggregatesBlocks(t *testing.T) {
	sc := &runtime.StageContext{
		JobID:   "job-1",
		Project: domain.ProjectSnapshot{ID: "proj-1", Rigor: domain.RigorExploratory},
		Blocks: []domain.Block{
			{ID: "b1", Text: "four words here now", CitationKeys: []string{"[@a]", "[@b]"}, ClaimIDs: []string{"c1"}},
			{ID: "b2", Text: "two words", CitationKeys: []string{"[@c]"}, ClaimIDs: []string{"c2", "c3"}},
		},
	}

	manifest := buildManifest(sc)
	if manifest.JobID != "job-1" || manifest.ProjectID != "proj-1" {
		t.Fatalf("unexpected manifest identity: %+v", manifest)
	}
	if len(manifest.Blocks) != 2 {
		t.Fatalf("expected 2 block stats, got %d", len(manifest.Blocks))
	}
	if manifest.TotalWordCount != 6 {
		t.Errorf("expected 6 total words, got %d", manifest.TotalWordCount)
	}
	if manifest.TotalCitations != 3 {
		t.Errorf("expected 3 total citations, got %d", manifest.TotalCitations)
	}
}

func TestBuildManifest_NoBlocks(t *testing.T) {
	sc := &runtime.StageContext{JobID: "job-2", Project: domain.ProjectSnapshot{ID: "proj-2"}}
	manifest := buildManifest(sc)
	if len(manifest.Blocks) != 0 || manifest.TotalWordCount != 0 {
		t.Fatalf("expected an empty manifest, got %+v", manifest)
	}
}

func TestWriteManifestFile(t *testing.T) {
	dir := t.TempDir()
	manifest := domain.ArtifactManifest{JobID: "job-3", ProjectID: "proj-3", TotalWordCount: 10}

	if err := writeManifestFile(dir, manifest); err != nil {
		t.Fatalf("writeManifestFile: %v", err)
	}

	path := filepath.Join(dir, "proj-3", "job-3", "artifact_manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected manifest file at %s: %v", path, err)
	}
	var got domain.ArtifactManifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("manifest file is not valid JSON: %v", err)
	}
	if got.JobID != manifest.JobID || got.TotalWordCount != manifest.TotalWordCount {
		t.Fatalf("round-tripped manifest mismatch: %+v", got)
	}
}

func TestWriteManifestFile_EmptyRootIsNoop(t *testing.T) {
	if err := writeManifestFile("", domain.ArtifactManifest{JobID: "job-4"}); err != nil {
		t.Fatalf("expected no-op with empty artifact root, got %v", err)
	}
}
