package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/logger"
	"docqa/internal/model"
	"docqa/internal/pkg/textsplit"
	"docqa/internal/repository"
	"docqa/internal/repository/repotest"
	"docqa/internal/vectorstore"
)

type docFixture struct {
	svc    *DocumentService
	repo   *repository.DocumentRepository
	index  *fakeIndex
	purger *fakePurger
	dir    string
}

func newDocFixture(t *testing.T, extractor TextExtractor) *docFixture {
	t.Helper()
	repo := repository.NewDocumentRepository(repotest.NewDB(t))
	index := &fakeIndex{}
	purger := &fakePurger{}
	dir := filepath.Join(t.TempDir(), "uploads")
	svc := NewDocumentService(repo, extractor, textsplit.New(500, 50), index, purger, dir, logger.Discard())
	return &docFixture{svc: svc, repo: repo, index: index, purger: purger, dir: dir}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUploadStoresFileRecordAndChunks(t *testing.T) {
	text := strings.Repeat("a", 1200)
	f := newDocFixture(t, fakeExtractor{text: text})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "doc1.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "doc1.pdf", res.Filename)
	assert.NotZero(t, res.ID)

	assert.Equal(t, []string{"doc1.pdf"}, dirEntries(t, f.dir))
	stored, err := os.ReadFile(filepath.Join(f.dir, "doc1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(stored))

	doc, err := f.repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, filepath.Join(f.dir, "doc1.pdf"), doc.Filepath)
	assert.False(t, doc.UploadedAt.IsZero())

	require.Len(t, f.index.added, 3)
	for i, c := range f.index.added {
		assert.Equal(t, "doc1.pdf", c.Filename())
		assert.Equal(t, res.ID, c.Metadata[vectorstore.MetaDocumentID])
		assert.Equal(t, i, c.Metadata[vectorstore.MetaChunkIndex])
	}
}

func TestUploadRejectsDuplicateFilename(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "doc1.pdf", []byte("first"))
	require.NoError(t, err)

	_, err = f.svc.Upload(ctx, "doc1.pdf", []byte("second"))
	assert.ErrorIs(t, err, ErrDocumentExists)

	stored, err := os.ReadFile(filepath.Join(f.dir, "doc1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(stored))
	assert.Len(t, f.index.added, 1)
}

// competingExtractor commits a record for the same filename and writes the
// winner's file while the upload is still in flight.
type competingExtractor struct {
	repo *repository.DocumentRepository
	path string
}

func (e competingExtractor) ExtractFile(string) (string, error) {
	if err := os.WriteFile(e.path, []byte("winner"), 0o644); err != nil {
		return "", err
	}
	doc := &model.Document{Filename: filepath.Base(e.path), Filepath: e.path}
	if err := e.repo.CreateWith(context.Background(), doc, nil); err != nil {
		return "", err
	}
	return "loser text", nil
}

func TestUploadLosingRaceKeepsWinnersFile(t *testing.T) {
	f := newDocFixture(t, nil)
	require.NoError(t, os.MkdirAll(f.dir, 0o755))
	f.svc.extractor = competingExtractor{repo: f.repo, path: filepath.Join(f.dir, "race.pdf")}

	_, err := f.svc.Upload(context.Background(), "race.pdf", []byte("loser"))
	assert.ErrorIs(t, err, ErrDocumentExists)

	stored, err := os.ReadFile(filepath.Join(f.dir, "race.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "winner", string(stored))
	assert.Equal(t, []string{"race.pdf"}, dirEntries(t, f.dir))
	assert.Empty(t, f.index.added)
	assert.Empty(t, f.index.deleted)

	docs, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestConcurrentUploadsOfSameNameAdmitOne(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})
	const uploaders = 8

	var wg sync.WaitGroup
	errs := make([]error, uploaders)
	for i := 0; i < uploaders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Upload(context.Background(), "same.pdf", []byte(fmt.Sprintf("copy %d", i)))
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDocumentExists):
			conflicts++
		default:
			t.Errorf("unexpected upload error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, uploaders-1, conflicts)

	docs, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, []string{"same.pdf"}, dirEntries(t, f.dir))
	assert.Len(t, f.index.added, 1)
}

func TestUploadRejectsEmptyContent(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})

	_, err := f.svc.Upload(context.Background(), "empty.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyUpload)
	assert.Empty(t, dirEntries(t, f.dir))

	docs, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUploadRejectsPathLikeNames(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})

	for _, name := range []string{"", "  ", ".", "..", "../evil.pdf", "dir/doc.pdf", `dir\doc.pdf`, strings.Repeat("x", 256)} {
		_, err := f.svc.Upload(context.Background(), name, []byte("data"))
		assert.ErrorIs(t, err, ErrInvalidInput, "name %q", name)
	}
	assert.Empty(t, dirEntries(t, f.dir))
}

func TestUploadExtractionFailureLeavesNothing(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{err: errBoom})

	_, err := f.svc.Upload(context.Background(), "broken.pdf", []byte("not a pdf"))
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, dirEntries(t, f.dir))

	doc, err := f.repo.GetByFilename(context.Background(), "broken.pdf")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUploadIndexFailureRollsBack(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "some text"})
	f.index.addErr = errBoom

	_, err := f.svc.Upload(context.Background(), "doc1.pdf", []byte("data"))
	assert.ErrorIs(t, err, ErrDependency)
	assert.Empty(t, dirEntries(t, f.dir))
	assert.Empty(t, f.index.deleted)

	doc, err := f.repo.GetByFilename(context.Background(), "doc1.pdf")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUploadMoveFailurePurgesIndexedChunks(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "some text"})
	blocker := filepath.Join(f.dir, "doc1.pdf")
	require.NoError(t, os.MkdirAll(blocker, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), []byte("x"), 0o644))

	_, err := f.svc.Upload(context.Background(), "doc1.pdf", []byte("data"))
	assert.ErrorIs(t, err, ErrDependency)
	assert.Len(t, f.index.deleted, 1)
	assert.Equal(t, []string{"doc1.pdf"}, dirEntries(t, f.dir))

	doc, err := f.repo.GetByFilename(context.Background(), "doc1.pdf")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUploadAcceptsDocumentWithoutText(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: ""})

	res, err := f.svc.Upload(context.Background(), "scan.pdf", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "scan.pdf", res.Filename)
	assert.Empty(t, f.index.added)
	assert.Equal(t, []string{"scan.pdf"}, dirEntries(t, f.dir))
}

func TestListReturnsSummaries(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})
	ctx := context.Background()

	a, err := f.svc.Upload(ctx, "a.pdf", []byte("a"))
	require.NoError(t, err)
	b, err := f.svc.Upload(ctx, "b.pdf", []byte("b"))
	require.NoError(t, err)

	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []DocumentSummary{*a, *b}, docs)
}

func TestDeleteRemovesFileRecordAndRequestsPurge(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "doc1.pdf", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, res.ID))
	assert.Empty(t, dirEntries(t, f.dir))

	doc, err := f.repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.Len(t, f.purger.purges, 1)
	assert.Equal(t, res.ID, f.purger.purges[0].DocumentID)
	assert.Equal(t, "doc1.pdf", f.purger.purges[0].Filename)

	assert.ErrorIs(t, f.svc.Delete(ctx, res.ID), ErrDocumentNotFound)
}

func TestDeleteToleratesMissingFileAndPurgeErrors(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{text: "hello"})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "doc1.pdf", []byte("data"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.dir, "doc1.pdf")))
	f.purger.err = errBoom

	require.NoError(t, f.svc.Delete(ctx, res.ID))
	docs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteRejectsZeroID(t *testing.T) {
	f := newDocFixture(t, fakeExtractor{})
	assert.ErrorIs(t, f.svc.Delete(context.Background(), 0), ErrInvalidInput)
}

func TestInlinePurgerDeletesFromIndex(t *testing.T) {
	repo := repository.NewDocumentRepository(repotest.NewDB(t))
	index := &fakeIndex{}
	svc := NewDocumentService(repo, fakeExtractor{text: "hello"}, textsplit.New(500, 50), index, nil, t.TempDir(), logger.Discard())
	ctx := context.Background()

	res, err := svc.Upload(ctx, "doc1.pdf", []byte("data"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, res.ID))
	assert.Equal(t, []uint{res.ID}, index.deleted)
}
