package stages

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/runtime"
)

// PageMap records where in the source PDF a block of extracted text came from.
type PageMap struct {
	Page int
	Text string
}

// ImageRef points at an extracted figure or table image.
type ImageRef struct {
	Page    int
	Path    string
	Caption string
}

// PDFExtractor turns raw PDF bytes into markdown text plus page/image maps.
// Injected so the stage stays free of any particular PDF library choice.
type PDFExtractor func(ctx context.Context, data []byte) (markdown string, pages []PageMap, images []ImageRef, err error)

// NewIngestPDFStage builds the optional document-extraction stage. It is
// always part of the DAG and completes immediately when the submission
// included no upload.
func NewIngestPDFStage(extract PDFExtractor) runtime.Stage {
	return runtime.Stage{
		Name:   "IngestPDF",
		Window: runtime.StageWindow{Low: 0, High: 15},
		Run: func(ctx context.Context, sc *runtime.StageContext) error {
			if !sc.Request.HasUpload {
				sc.ReportProgress(100)
				return nil
			}
			if sc.Request.PDFPath == "" {
				return fmt.Errorf("ingest_pdf: upload flagged but no pdf_path set")
			}

			setIngestionState(ctx, sc, domain.IngestionExtracting, nil)

			sc.ReportProgress(10)
			data, err := os.ReadFile(sc.Request.PDFPath)
			if err != nil {
				failErr := fmt.Errorf("ingest_pdf: read %s: %w", sc.Request.PDFPath, err)
				setIngestionState(ctx, sc, domain.IngestionFailed, failErr)
				return failErr
			}

			sc.ReportProgress(40)
			markdown, pages, images, err := extract(ctx, data)
			if err != nil {
				failErr := fmt.Errorf("ingest_pdf: extract: %w", err)
				setIngestionState(ctx, sc, domain.IngestionFailed, failErr)
				return failErr
			}

			if sc.DocText != "" {
				sc.DocText = sc.DocText + "\n\n" + markdown
			} else {
				sc.DocText = markdown
			}

			updateFirstGlance(ctx, sc, pages, images)
			sc.ReportProgress(100)
			return nil
		},
	}
}

// setIngestionState updates the Ingestion record tracking this job's upload,
// if one was created at submission time. It is best-effort: a failure here
// never aborts the pipeline, since the Ingestion is a status side-channel.
func setIngestionState(ctx context.Context, sc *runtime.StageContext, state domain.IngestionState, cause error) {
	if sc.IngestionID == "" {
		return
	}
	ingestion, err := sc.Deps.Graph.Ingests.Get(ctx, sc.IngestionID)
	if err != nil {
		sc.Logger.Warn("ingest_pdf: load ingestion failed", "ingestion_id", sc.IngestionID, "err", err)
		return
	}
	ingestion.State = state
	if cause != nil {
		ingestion.Error = cause.Error()
	}
	if _, err := sc.Deps.Graph.Ingests.Update(ctx, ingestion); err != nil {
		sc.Logger.Warn("ingest_pdf: update ingestion failed", "ingestion_id", sc.IngestionID, "err", err)
	}
}

// updateFirstGlance records the quick structural summary of a successfully
// extracted document and advances the ingestion to Mapping, the next stage
// in its lifecycle.
func updateFirstGlance(ctx context.Context, sc *runtime.StageContext, pages []PageMap, images []ImageRef) {
	if sc.IngestionID == "" {
		return
	}
	ingestion, err := sc.Deps.Graph.Ingests.Get(ctx, sc.IngestionID)
	if err != nil {
		sc.Logger.Warn("ingest_pdf: load ingestion failed", "ingestion_id", sc.IngestionID, "err", err)
		return
	}

	tables, figures := classifyImages(images)

	ingestion.State = domain.IngestionMapping
	ingestion.FirstGlance = &domain.FirstGlance{
		Pages:           len(pages),
		TablesDetected:  tables,
		FiguresDetected: figures,
		TextDensity:     textDensity(pages),
	}
	if _, err := sc.Deps.Graph.Ingests.Update(ctx, ingestion); err != nil {
		sc.Logger.Warn("ingest_pdf: update ingestion failed", "ingestion_id", sc.IngestionID, "err", err)
	}
}

// classifyImages splits extracted images into tables and figures based on
// their caption, since the extractor doesn't distinguish the two itself.
func classifyImages(images []ImageRef) (tables, figures int) {
	for _, img := range images {
		if strings.Contains(strings.ToLower(img.Caption), "table") {
			tables++
		} else {
			figures++
		}
	}
	return tables, figures
}

// textDensity is the average character count per extracted page, a coarse
// signal of how much of the source document is searchable text versus
// scanned images.
func textDensity(pages []PageMap) float64 {
	if len(pages) == 0 {
		return 0
	}
	var totalChars int
	for _, p := range pages {
		totalChars += len(p.Text)
	}
	return float64(totalChars) / float64(len(pages))
}
