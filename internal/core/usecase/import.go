package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kamdev/ragpipe/internal/core/domain"
	"github.com/kamdev/ragpipe/internal/core/ports"
)

const defaultBatchSize = 64

// ImportUseCase streams documents from a source, chunks and embeds them in
// batches and upserts each batch as soon as its vectors arrive. A batch
// that fails to embed is counted and skipped; the run keeps going. Store
// failures terminate the run with a partial report, so a half-finished
// import can be resumed by re-running it: upsert is keyed by chunk id.
type ImportUseCase struct {
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.VectorStore
	catalog   ports.ImportCatalog // optional
	batchSize int
	logger    *slog.Logger
}

var _ ports.DocumentImporter = (*ImportUseCase)(nil)

func NewImportUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.VectorStore,
	catalog ports.ImportCatalog,
	batchSize int,
	logger *slog.Logger,
) *ImportUseCase {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &ImportUseCase{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		catalog:   catalog,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (uc *ImportUseCase) Import(ctx context.Context, source ports.DocumentSource, corpus string) (domain.ImportReport, error) {
	started := time.Now()
	run := &domain.ImportRun{
		ID:        uuid.NewString(),
		Corpus:    corpus,
		Embedder:  uc.embedder.ID(),
		Status:    domain.RunRunning,
		StartedAt: started.UTC(),
	}
	if uc.catalog != nil {
		// The catalog is bookkeeping; it never blocks an import.
		if err := uc.catalog.CreateRun(ctx, run); err != nil {
			uc.logger.Warn("create import run record", slog.String("error", err.Error()))
		}
	}

	var report domain.ImportReport
	err := uc.drain(ctx, source, &report)

	report.Duration = time.Since(started)
	uc.finishRun(run, report, err)
	uc.logger.Info("import finished",
		slog.String("corpus", corpus),
		slog.Int("documents", report.Documents),
		slog.Int("chunks_written", report.ChunksWritten),
		slog.Int("chunks_failed", report.ChunksFailed),
		slog.Duration("duration", report.Duration))
	return report, err
}

func (uc *ImportUseCase) drain(ctx context.Context, source ports.DocumentSource, report *domain.ImportReport) error {
	for {
		doc, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		report.Documents++
		chunks := uc.chunker.Split(doc.ID, doc.Text)
		if len(chunks) == 0 {
			uc.logger.Debug("document produced no chunks", slog.String("doc_id", doc.ID))
			continue
		}
		if err := uc.ingestChunks(ctx, doc, chunks, report); err != nil {
			return err
		}
	}
}

func (uc *ImportUseCase) ingestChunks(
	ctx context.Context,
	doc domain.Document,
	chunks []domain.Chunk,
	report *domain.ImportReport,
) error {
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := min(start+uc.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			uc.logger.Warn("embed batch failed, skipping",
				slog.String("doc_id", doc.ID),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			report.ChunksFailed += len(batch)
			continue
		}
		if len(vectors) != len(batch) {
			uc.logger.Warn("embedder returned wrong vector count, skipping batch",
				slog.String("doc_id", doc.ID),
				slog.Int("want", len(batch)), slog.Int("got", len(vectors)))
			report.ChunksFailed += len(batch)
			continue
		}

		records := make([]domain.StoredRecord, len(batch))
		for i, c := range batch {
			records[i] = domain.StoredRecord{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				Vector:     vectors[i],
				Text:       c.Text,
				Meta:       doc.Meta,
				Embedder:   uc.embedder.ID(),
			}
		}
		written, err := uc.store.Upsert(ctx, records)
		if err != nil {
			// Store errors are not containable: subsequent batches would
			// fail the same way, so surface with what was written so far.
			return fmt.Errorf("upsert batch: %w", err)
		}
		report.ChunksWritten += written
	}
	return nil
}

func (uc *ImportUseCase) finishRun(run *domain.ImportRun, report domain.ImportReport, runErr error) {
	run.ChunksWritten = report.ChunksWritten
	run.ChunksFailed = report.ChunksFailed
	run.FinishedAt = time.Now().UTC()
	if runErr != nil {
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = domain.RunFinished
	}
	if uc.catalog == nil {
		return
	}
	// Finishing the record must survive a cancelled import context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.catalog.FinishRun(ctx, run); err != nil {
		uc.logger.Warn("finish import run record", slog.String("error", err.Error()))
	}
}
