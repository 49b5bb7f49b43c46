package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kamdev/ragpipe/internal/core/domain"
)

func doc(id, text string) domain.Document {
	return domain.Document{ID: id, Text: text, Meta: domain.Metadata{Source: id + ".txt"}}
}

func TestImportWritesAllChunks(t *testing.T) {
	store := newFakeStore()
	uc := NewImportUseCase(fixedChunker{size: 4}, &fakeEmbedder{}, store, nil, 2, testLogger())

	source := &sliceSource{docs: []domain.Document{
		doc("d1", "aaaabbbbcccc"), // 3 chunks
		doc("d2", "dddd"),         // 1 chunk
	}}
	report, err := uc.Import(context.Background(), source, "corpus.json")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Documents != 2 || report.ChunksWritten != 4 || report.ChunksFailed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(store.records) != 4 {
		t.Fatalf("expected 4 records in store, got %d", len(store.records))
	}
	if r, ok := store.records["d1_chunk2"]; !ok || r.Meta.Source != "d1.txt" || r.Embedder != "fake/embedder" {
		t.Fatalf("record missing or incomplete: %+v", r)
	}
	if report.Duration <= 0 {
		t.Fatal("report must carry a duration")
	}
}

func TestImportContainsEmbedFailuresPerBatch(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{failOn: "POISON"}
	uc := NewImportUseCase(fixedChunker{size: 6}, embedder, store, nil, 1, testLogger())

	source := &sliceSource{docs: []domain.Document{
		doc("d1", "okokokPOISONokokok"), // middle batch fails to embed
	}}
	report, err := uc.Import(context.Background(), source, "corpus.json")
	if err != nil {
		t.Fatalf("embed failures must not fail the run, got %v", err)
	}
	if report.ChunksWritten != 2 || report.ChunksFailed != 1 {
		t.Fatalf("expected 2 written / 1 failed, got %+v", report)
	}
	if _, ok := store.records["d1_chunk1"]; ok {
		t.Fatal("failed batch must not be written")
	}
	if _, ok := store.records["d1_chunk2"]; !ok {
		t.Fatal("batches after a failed one must still be written")
	}
}

func TestImportSurfacesStoreErrorWithPartialReport(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = domain.WrapError(domain.ErrStoreUnavailable, "upsert", context.DeadlineExceeded)
	uc := NewImportUseCase(fixedChunker{size: 4}, &fakeEmbedder{}, store, nil, 2, testLogger())

	source := &sliceSource{docs: []domain.Document{doc("d1", "aaaabbbb")}}
	report, err := uc.Import(context.Background(), source, "corpus.json")
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if report.Documents != 1 {
		t.Fatalf("partial report must still count processed documents: %+v", report)
	}
}

func TestImportRecordsRunInCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	uc := NewImportUseCase(fixedChunker{size: 4}, &fakeEmbedder{}, newFakeStore(), catalog, 0, testLogger())

	if _, err := uc.Import(context.Background(), &sliceSource{docs: []domain.Document{doc("d1", "aaaa")}}, "corpus.json"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(catalog.created) != 1 || len(catalog.finished) != 1 {
		t.Fatalf("expected one created and one finished record, got %d/%d", len(catalog.created), len(catalog.finished))
	}
	created, finished := catalog.created[0], catalog.finished[0]
	if created.Status != domain.RunRunning || created.Corpus != "corpus.json" || created.Embedder != "fake/embedder" {
		t.Fatalf("unexpected created run: %+v", created)
	}
	if finished.Status != domain.RunFinished || finished.ChunksWritten != 1 || finished.ID != created.ID {
		t.Fatalf("unexpected finished run: %+v", finished)
	}
}

func TestImportMarksRunFailedOnSourceError(t *testing.T) {
	catalog := &fakeCatalog{}
	source := &sliceSource{
		docs: []domain.Document{doc("d1", "aaaa")},
		err:  domain.WrapError(domain.ErrInvalidInput, "parse", context.DeadlineExceeded),
	}
	uc := NewImportUseCase(fixedChunker{size: 4}, &fakeEmbedder{}, newFakeStore(), catalog, 0, testLogger())

	_, err := uc.Import(context.Background(), source, "corpus.json")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(catalog.finished) != 1 || catalog.finished[0].Status != domain.RunFailed || catalog.finished[0].Error == "" {
		t.Fatalf("expected failed run record, got %+v", catalog.finished)
	}
}

func TestImportSkipsEmptyDocuments(t *testing.T) {
	store := newFakeStore()
	uc := NewImportUseCase(fixedChunker{size: 4}, &fakeEmbedder{}, store, nil, 0, testLogger())

	report, err := uc.Import(context.Background(), &sliceSource{docs: []domain.Document{
		doc("empty", ""),
		doc("d1", "aaaa"),
	}}, "corpus.json")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Documents != 2 || report.ChunksWritten != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !strings.HasPrefix(firstKey(store.records), "d1_") {
		t.Fatalf("unexpected records: %v", store.records)
	}
}

func firstKey(m map[string]domain.StoredRecord) string {
	for k := range m {
		return k
	}
	return ""
}
