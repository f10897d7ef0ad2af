package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/internal/database/mysql"
	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/blob"
	"file-organizer/backend/go/internal/organizer_service/events"
	"file-organizer/backend/go/internal/organizer_service/rag/pipeline"
	"file-organizer/backend/go/internal/organizer_service/store"
	"file-organizer/backend/go/internal/organizer_service/suggestions"
	"file-organizer/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeSuggester struct {
	err      error
	indexed  []string
	indexErr map[string]error
}

func (f *fakeSuggester) SuggestFile(_ context.Context, fileID string, _ map[string]interface{}) (*pipeline.FileSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.FileSuggestion{FileID: fileID, Suggestion: json.RawMessage(`{"suggestedPath":"/Invoices/2024"}`)}, nil
}

func (f *fakeSuggester) SuggestBatch(_ context.Context, ids []string, _ map[string]interface{}) (*pipeline.BatchSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &pipeline.BatchSuggestion{FileIDs: ids, Skipped: []string{}}
	for _, id := range ids {
		res.Results = append(res.Results, json.RawMessage(`{"for":"`+id+`"}`))
	}
	return res, nil
}

func (f *fakeSuggester) SuggestFolder(_ context.Context, folderID string, _ map[string]interface{}) (*pipeline.FolderSuggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.FolderSuggestion{FolderID: folderID, FileIDs: []string{"a"}, Tags: []string{},
		Suggestion: json.RawMessage(`{"folderName":"Receipts"}`)}, nil
}

func (f *fakeSuggester) Index(_ context.Context, file *models.File) error {
	if err := f.indexErr[file.ID]; err != nil {
		return err
	}
	f.indexed = append(f.indexed, file.ID)
	return nil
}

type harness struct {
	svc       *Service
	store     *store.Store
	dir       string
	pub       *recordingPublisher
	suggester *fakeSuggester
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := mysql.Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))
	t.Cleanup(func() { _ = mysql.Close(db) })

	dir := t.TempDir()
	blobs, err := blob.NewLocalStorage(dir)
	require.NoError(t, err)
	sugg, err := suggestions.NewMemoryStore(16, time.Hour)
	require.NoError(t, err)

	h := &harness{store: store.New(db), dir: dir, pub: &recordingPublisher{}, suggester: &fakeSuggester{}}
	h.svc = NewService(h.store, blobs, h.suggester, sugg, h.pub,
		Options{DefaultUser: "demo-user", MaxUploadBytes: 1024}, logger.Discard())
	return h
}

func (h *harness) upload(t *testing.T, name, mime string, body []byte) *models.File {
	t.Helper()
	f, err := h.svc.Upload(context.Background(), UploadInput{
		Content:      bytes.NewReader(body),
		Size:         int64(len(body)),
		OriginalName: name,
		MimeType:     mime,
	})
	require.NoError(t, err)
	return f
}

func TestUpload(t *testing.T) {
	h := newHarness(t)

	f := h.upload(t, "Report.PDF", "application/pdf", []byte("%PDF-1.4 body"))
	assert.Equal(t, "Report.PDF", f.OriginalName)
	assert.Equal(t, ".pdf", filepath.Ext(f.Name))
	assert.Equal(t, "/uploads/"+f.Name, f.Path)
	assert.Equal(t, "demo-user", f.UserID)
	assert.Equal(t, []models.Tag{}, f.Tags)

	stored, err := os.ReadFile(filepath.Join(h.dir, f.Name))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(stored))
	assert.Equal(t, []string{events.FileUploaded}, h.pub.types())
}

func TestUpload_SniffsMissingType(t *testing.T) {
	h := newHarness(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	f := h.upload(t, "scan", "application/octet-stream", png)
	assert.Equal(t, "image/png", f.MimeType)

	stored, err := os.ReadFile(filepath.Join(h.dir, f.Name))
	require.NoError(t, err)
	assert.Equal(t, png, stored)

	f = h.upload(t, "notes.txt", "", []byte("plain words"))
	assert.Equal(t, "text/plain", f.MimeType)

	f = h.upload(t, "a.txt", "text/plain; charset=utf-8", []byte("x"))
	assert.Equal(t, "text/plain", f.MimeType)
}

func TestUpload_Rejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Upload(ctx, UploadInput{Content: bytes.NewReader(make([]byte, 2048)), Size: 2048, OriginalName: "big.bin"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.svc.Upload(ctx, UploadInput{OriginalName: "x.txt"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	missing := "no-such-folder"
	_, err = h.svc.Upload(ctx, UploadInput{Content: bytes.NewReader([]byte("x")), Size: 1, OriginalName: "x.txt", MimeType: "text/plain", FolderID: &missing})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed uploads leave no content behind")
}

func TestOpenAndDeleteFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := h.upload(t, "a.txt", "text/plain", []byte("hello"))

	_, rc, err := h.svc.OpenFile(ctx, f.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(body))

	_, err = h.svc.SuggestFile(ctx, f.ID, nil)
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteFile(ctx, f.ID))
	_, err = os.Stat(filepath.Join(h.dir, f.Name))
	assert.True(t, os.IsNotExist(err))
	_, err = h.svc.GetSuggestion(ctx, suggestions.TargetFile, f.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(h.svc.DeleteFile(ctx, f.ID)))
}

func TestSuggestRecordsAndApplyClears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := h.upload(t, "invoice.txt", "text/plain", []byte("total"))

	res, err := h.svc.SuggestFile(ctx, f.ID, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestedPath":"/Invoices/2024"}`, string(res.Suggestion))

	rec, err := h.svc.GetSuggestion(ctx, suggestions.TargetFile, f.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(res.Suggestion), string(rec.Suggestion))
	assert.False(t, rec.CreatedAt.IsZero())

	applied, err := h.svc.ApplyFile(ctx, ApplyFileInput{FileID: f.ID, SuggestedPath: "/Invoices/2024", Tags: []string{"finance", " finance ", "2024"}})
	require.NoError(t, err)
	require.NotNil(t, applied.FolderID)
	assert.ElementsMatch(t, []string{"finance", "2024"}, applied.TagNames())

	folder, err := h.store.GetFolder(ctx, *applied.FolderID)
	require.NoError(t, err)
	assert.Equal(t, "Invoices/2024", folder.Path)

	_, err = h.svc.GetSuggestion(ctx, suggestions.TargetFile, f.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, []string{events.FileUploaded, events.SuggestionGenerated, events.SuggestionApplied}, h.pub.types())
}

func TestSuggestBatch_RecordsEachResult(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SuggestBatch(ctx, []string{"a", "b"}, nil)
	require.NoError(t, err)
	for _, id := range []string{"a", "b"} {
		rec, err := h.svc.GetSuggestion(ctx, suggestions.TargetFile, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"for":"`+id+`"}`, string(rec.Suggestion))
	}
}

func TestSuggest_ErrorsPassThroughUnrecorded(t *testing.T) {
	h := newHarness(t)
	h.suggester.err = apperr.External(apperr.StageAnalyze, errors.New("down"))

	_, err := h.svc.SuggestFile(context.Background(), "x", nil)
	assert.Equal(t, apperr.StageAnalyze, apperr.StageOf(err))
	_, err = h.svc.SuggestFolder(context.Background(), "x", nil)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
	assert.Empty(t, h.pub.types())
}

func TestDiscardSuggestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SuggestFolder(ctx, "folder-1", nil)
	require.NoError(t, err)
	rec, err := h.svc.GetSuggestion(ctx, suggestions.TargetFolder, "folder-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rec.FileIDs)

	require.NoError(t, h.svc.DiscardSuggestion(ctx, suggestions.TargetFolder, "folder-1"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(h.svc.DiscardSuggestion(ctx, suggestions.TargetFolder, "folder-1")))
}

func TestApplyFolder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.upload(t, "a.txt", "text/plain", []byte("a"))
	b := h.upload(t, "b.txt", "text/plain", []byte("b"))

	res, err := h.svc.ApplyFolder(ctx, ApplyFolderInput{FileIDs: []string{a.ID, b.ID}, FolderName: "Receipts", Tags: []string{"finance"}})
	require.NoError(t, err)
	assert.Equal(t, "Receipts", res.Folder.Path)
	require.Len(t, res.Files, 2)
	for _, f := range res.Files {
		assert.Equal(t, res.Folder.ID, *f.FolderID)
		assert.Equal(t, []string{"finance"}, f.TagNames())
	}

	renamed, err := h.svc.ApplyFolder(ctx, ApplyFolderInput{FolderID: res.Folder.ID, FolderName: "Receipts 2024", Tags: []string{"tax"}})
	require.NoError(t, err)
	assert.Equal(t, res.Folder.ID, renamed.Folder.ID)
	assert.Equal(t, "Receipts 2024", renamed.Folder.Name)
	assert.Len(t, renamed.Files, 2)

	_, err = h.svc.ApplyFolder(ctx, ApplyFolderInput{FileIDs: []string{a.ID}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = h.svc.ApplyFile(ctx, ApplyFileInput{SuggestedPath: "/x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = h.svc.ApplyFile(ctx, ApplyFileInput{FileID: "missing", SuggestedPath: "/x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteFolder_RemovesContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	parent, err := h.svc.CreateFolder(ctx, "Projects", nil)
	require.NoError(t, err)
	child, err := h.svc.CreateFolder(ctx, "Alpha", &parent.ID)
	require.NoError(t, err)

	f, err := h.svc.Upload(ctx, UploadInput{Content: bytes.NewReader([]byte("x")), Size: 1, OriginalName: "x.txt", MimeType: "text/plain", FolderID: &child.ID})
	require.NoError(t, err)

	n, err := h.svc.DeleteFolder(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(filepath.Join(h.dir, f.Name))
	assert.True(t, os.IsNotExist(err))
	_, err = h.svc.GetFile(ctx, f.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestReindex(t *testing.T) {
	h := newHarness(t)
	a := h.upload(t, "a.txt", "text/plain", []byte("a"))
	b := h.upload(t, "b.txt", "text/plain", []byte("b"))
	h.suggester.indexErr = map[string]error{b.ID: errors.New("embedding down")}

	report, err := h.svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReindexReport{Total: 2, Indexed: 1, Failed: 1}, report)
	assert.Equal(t, []string{a.ID}, h.suggester.indexed)
}
