package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/internal/database/mysql"
	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/blob"
	"file-organizer/backend/go/internal/organizer_service/rag/pipeline"
	"file-organizer/backend/go/internal/organizer_service/service"
	"file-organizer/backend/go/internal/organizer_service/store"
	"file-organizer/backend/go/internal/organizer_service/suggestions"
	"file-organizer/backend/go/pkg/logger"
	"file-organizer/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSuggester struct {
	err error
}

func (s *stubSuggester) SuggestFile(_ context.Context, fileID string, _ map[string]interface{}) (*pipeline.FileSuggestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.FileSuggestion{FileID: fileID, Suggestion: json.RawMessage(`{"suggestedPath":"/Docs"}`)}, nil
}

func (s *stubSuggester) SuggestBatch(_ context.Context, ids []string, _ map[string]interface{}) (*pipeline.BatchSuggestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(ids) == 0 {
		return nil, apperr.Validation("fileIds must not be empty")
	}
	res := &pipeline.BatchSuggestion{FileIDs: ids, Skipped: []string{}}
	for range ids {
		res.Results = append(res.Results, json.RawMessage(`{}`))
	}
	return res, nil
}

func (s *stubSuggester) SuggestFolder(_ context.Context, folderID string, _ map[string]interface{}) (*pipeline.FolderSuggestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.FolderSuggestion{FolderID: folderID, FileIDs: []string{}, Tags: []string{},
		Suggestion: json.RawMessage(`{"folderName":"Archive"}`)}, nil
}

func (s *stubSuggester) Index(context.Context, *models.File) error { return nil }

type testServer struct {
	router    *gin.Engine
	suggester *stubSuggester
}

func newTestServer(t *testing.T, limiter ratelimiter.KeyedRateLimiter) *testServer {
	t.Helper()
	db, err := mysql.Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))
	t.Cleanup(func() { _ = mysql.Close(db) })

	blobs, err := blob.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	sugg, err := suggestions.NewMemoryStore(16, time.Hour)
	require.NoError(t, err)

	ts := &testServer{suggester: &stubSuggester{}}
	svc := service.NewService(store.New(db), blobs, ts.suggester, sugg, nil,
		service.Options{DefaultUser: "demo-user", MaxUploadBytes: 1 << 20}, logger.Discard())
	ts.router = SetupRouter(NewHandler(svc, logger.Discard()), logger.Discard(), limiter)
	return ts
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return ts.serve(t, req)
}

func (ts *testServer) serve(t *testing.T, req *http.Request) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	var res response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w.Code, res
}

func (ts *testServer) upload(t *testing.T, name string, content []byte, fields map[string]string) models.File {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, res := ts.serve(t, req)
	require.Equal(t, http.StatusOK, code, res.Error)

	var f models.File
	require.NoError(t, json.Unmarshal(res.Data, &f))
	return f
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestUploadListDownload(t *testing.T) {
	ts := newTestServer(t, nil)

	f := ts.upload(t, "notes.txt", []byte("hello world"), map[string]string{"description": "meeting notes"})
	assert.Equal(t, "notes.txt", f.OriginalName)
	assert.Equal(t, "text/plain", f.MimeType)
	assert.Equal(t, "meeting notes", f.Description)
	assert.Equal(t, "demo-user", f.UserID)

	code, res := ts.do(t, http.MethodGet, "/api/files?folderId=root&type=text", nil)
	require.Equal(t, http.StatusOK, code)
	files := decode[[]models.File](t, res.Data)
	require.Len(t, files, 1)
	assert.Equal(t, f.ID, files[0].ID)

	code, res = ts.do(t, http.MethodGet, "/api/files?type=image", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(res.Data))

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files/"+f.ID+"/download", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=notes.txt`)
}

func TestUpload_NoFile(t *testing.T) {
	ts := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", "nothing attached"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	code, res := ts.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
	assert.Equal(t, "No file uploaded", res.Message)
}

func TestListFiles_BadQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, q := range []string{"sortBy=color", "sortOrder=up", "dateFrom=yesterday", "sizeMin=-1", "type=video"} {
		code, res := ts.do(t, http.MethodGet, "/api/files?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, code, q)
		assert.False(t, res.Success, q)
		assert.NotEmpty(t, res.Error, q)
	}
}

func TestFileTags(t *testing.T) {
	ts := newTestServer(t, nil)
	f := ts.upload(t, "a.txt", []byte("a"), nil)
	base := "/api/files/" + f.ID + "/tags"

	code, res := ts.do(t, http.MethodPost, base, map[string]string{"tagName": "finance"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Tag added to file", res.Message)
	tag := decode[models.Tag](t, res.Data)

	_, res = ts.do(t, http.MethodPost, base, map[string]string{"tagName": "finance"})
	assert.Equal(t, "Tag already exists for file", res.Message)

	code, _ = ts.do(t, http.MethodPost, base, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = ts.do(t, http.MethodGet, "/api/files?tags=finance,other", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.File](t, res.Data), 1)

	code, _ = ts.do(t, http.MethodDelete, base+"/"+tag.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodDelete, base+"/"+tag.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = ts.do(t, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Tag](t, res.Data), 1)
}

func TestUpdateFile(t *testing.T) {
	ts := newTestServer(t, nil)
	f := ts.upload(t, "a.txt", []byte("a"), nil)

	code, res := ts.do(t, http.MethodPatch, "/api/files/"+f.ID, map[string]interface{}{
		"folderPath":  "Work/Reports",
		"tags":        []string{"q1"},
		"description": "quarterly",
	})
	require.Equal(t, http.StatusOK, code, res.Error)
	updated := decode[models.File](t, res.Data)
	require.NotNil(t, updated.FolderID)
	assert.Equal(t, "quarterly", updated.Description)
	assert.Equal(t, []string{"q1"}, updated.TagNames())

	code, res = ts.do(t, http.MethodPatch, "/api/files/"+f.ID, map[string]interface{}{"folderId": nil})
	require.Equal(t, http.StatusOK, code, res.Error)
	assert.Nil(t, decode[models.File](t, res.Data).FolderID)

	code, _ = ts.do(t, http.MethodPatch, "/api/files/missing", map[string]interface{}{"description": "x"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFolders(t *testing.T) {
	ts := newTestServer(t, nil)

	code, res := ts.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Projects"})
	require.Equal(t, http.StatusCreated, code)
	parent := decode[models.Folder](t, res.Data)

	code, res = ts.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "Alpha", "parentId": parent.ID})
	require.Equal(t, http.StatusCreated, code)
	child := decode[models.Folder](t, res.Data)
	assert.Equal(t, "Projects/Alpha", child.Path)

	code, _ = ts.do(t, http.MethodPost, "/api/folders", map[string]string{"name": "a/b"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = ts.do(t, http.MethodPatch, "/api/folders/"+parent.ID, map[string]string{"name": "Work"})
	require.Equal(t, http.StatusOK, code)

	code, res = ts.do(t, http.MethodGet, "/api/folders/"+parent.ID, nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[store.FolderDetail](t, res.Data)
	require.Len(t, detail.Children, 1)
	assert.Equal(t, "Work/Alpha", detail.Children[0].Path)
	assert.Empty(t, detail.Files)

	code, _ = ts.do(t, http.MethodPatch, "/api/folders/"+parent.ID, map[string]string{"parentId": child.ID})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = ts.do(t, http.MethodPatch, "/api/folders/"+child.ID, map[string]interface{}{"parentId": nil})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alpha", decode[models.Folder](t, res.Data).Path)

	code, _ = ts.do(t, http.MethodDelete, "/api/folders/"+parent.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodGet, "/api/folders/"+parent.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSuggestAndApply(t *testing.T) {
	ts := newTestServer(t, nil)
	f := ts.upload(t, "invoice.txt", []byte("total due"), nil)

	code, res := ts.do(t, http.MethodPost, "/api/organization/suggest/file/"+f.ID, nil)
	require.Equal(t, http.StatusOK, code, res.Error)
	assert.JSONEq(t, `{"fileId":"`+f.ID+`","suggestion":{"suggestedPath":"/Docs"}}`, string(res.Data))

	code, res = ts.do(t, http.MethodGet, "/api/organization/suggestions/file/"+f.ID, nil)
	require.Equal(t, http.StatusOK, code)
	rec := decode[suggestions.Record](t, res.Data)
	assert.JSONEq(t, `{"suggestedPath":"/Docs"}`, string(rec.Suggestion))

	code, res = ts.do(t, http.MethodPost, "/api/organization/apply", map[string]interface{}{
		"fileId": f.ID, "suggestedPath": "/Docs/Invoices", "tags": []string{"finance"},
	})
	require.Equal(t, http.StatusOK, code, res.Error)
	applied := decode[models.File](t, res.Data)
	assert.Equal(t, []string{"finance"}, applied.TagNames())

	code, _ = ts.do(t, http.MethodGet, "/api/organization/suggestions/file/"+f.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodPost, "/api/organization/apply", map[string]interface{}{"fileId": f.ID})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSuggestFile_EmptyChunkedBody(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/organization/suggest/file/abc", bytes.NewReader(nil))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Transfer-Encoding", "chunked")

	code, res := ts.serve(t, req)
	require.Equal(t, http.StatusOK, code, res.Error)
	assert.JSONEq(t, `{"fileId":"abc","suggestion":{"suggestedPath":"/Docs"}}`, string(res.Data))

	code, _ = ts.do(t, http.MethodPost, "/api/organization/suggest/file/abc", "not an object")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSuggestBatchAndFolder(t *testing.T) {
	ts := newTestServer(t, nil)

	code, res := ts.do(t, http.MethodPost, "/api/organization/suggest/batch", map[string]interface{}{"fileIds": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, code)
	batch := decode[pipeline.BatchSuggestion](t, res.Data)
	assert.Equal(t, []string{"a", "b"}, batch.FileIDs)
	assert.Len(t, batch.Results, 2)

	code, _ = ts.do(t, http.MethodPost, "/api/organization/suggest/batch", map[string]interface{}{"fileIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = ts.do(t, http.MethodPost, "/api/organization/suggest/folder/f-1", map[string]interface{}{"userContext": map[string]string{"role": "accountant"}})
	require.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodDelete, "/api/organization/suggestions/folder/f-1", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodDelete, "/api/organization/suggestions/folder/f-1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = ts.do(t, http.MethodPost, "/api/organization/apply/folder", map[string]interface{}{"fileIds": []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, res.Success)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.NotFound("file x not found"), http.StatusNotFound},
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.External(apperr.StageOrganize, errors.New("down")), http.StatusBadGateway},
		{apperr.Persistence("write failed", errors.New("disk")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		ts := newTestServer(t, nil)
		ts.suggester.err = tc.err

		code, res := ts.do(t, http.MethodPost, "/api/organization/suggest/file/x", nil)
		assert.Equal(t, tc.want, code, tc.err.Error())
		assert.False(t, res.Success)
		assert.Equal(t, "Error suggesting organization", res.Message)
		assert.Equal(t, tc.err.Error(), res.Error)
	}
}

func TestExternalErrorNamesStage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.suggester.err = apperr.External(apperr.StageAnalyze, errors.New("connection refused"))

	code, res := ts.do(t, http.MethodPost, "/api/organization/suggest/folder/f-1", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, res.Error, string(apperr.StageAnalyze))
}

func TestRouterEdges(t *testing.T) {
	ts := newTestServer(t, ratelimiter.NewKeyedTokenBucket(0.001, 2, time.Minute))

	code, res := ts.do(t, http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, res.Success)

	code, _ = ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, res = ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.False(t, res.Success)
}
