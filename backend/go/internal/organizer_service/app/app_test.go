package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/internal/organizer_service/service"
	"file-organizer/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recorder answers fixed JSON per path and keeps the last request body of each.
type recorder struct {
	mu      sync.Mutex
	bodies  map[string]string
	replies map[string]string
}

func newRecorder(t *testing.T, replies map[string]string) (*recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{bodies: map[string]string{}, replies: replies}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies[r.URL.Path] = string(raw)
		reply, ok := rec.replies[r.URL.Path]
		rec.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return rec, srv
}

func (r *recorder) body(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[path]
}

func testConfig(t *testing.T, embedURL, modelURL string) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{}
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Embedding.Endpoint = embedURL + "/embed"
	cfg.Models.AnalyzeURL = modelURL + "/api/analyze"
	cfg.Models.OrganizeURL = modelURL + "/api/organize"
	cfg.Models.OrganizeBatchURL = modelURL + "/api/organize/batch"
	cfg.Models.OrganizeFolderURL = modelURL + "/api/organize/folder"
	cfg.Pipeline.OCRBinary = "off"
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_SuggestEndToEnd(t *testing.T) {
	_, embedSrv := newRecorder(t, map[string]string{"/embed": `{"vector":[0.1,0.2,0.3]}`})
	models, modelSrv := newRecorder(t, map[string]string{
		"/api/analyze":  `{"prompt":"file this invoice"}`,
		"/api/organize": `{"suggestedPath":"/Finance/Invoices","tags":["invoice"]}`,
	})

	a, err := New(context.Background(), testConfig(t, embedSrv.URL, modelSrv.URL), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	ctx := context.Background()
	upload := func(name, body string) string {
		f, err := a.Service.Upload(ctx, service.UploadInput{
			Content:      strings.NewReader(body),
			Size:         int64(len(body)),
			OriginalName: name,
			MimeType:     "text/plain",
		})
		require.NoError(t, err)
		return f.ID
	}
	first := upload("first-invoice.txt", "invoice 1 total 40")
	second := upload("second-invoice.txt", "invoice 2 total 42")

	suggest := func(id string) (int, map[string]json.RawMessage) {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/organization/suggest/file/"+id, bytes.NewReader(nil)))
		var env map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
		return w.Code, env
	}

	code, env := suggest(first)
	require.Equal(t, http.StatusOK, code, string(env["error"]))
	code, env = suggest(second)
	require.Equal(t, http.StatusOK, code, string(env["error"]))

	var data struct {
		FileID     string          `json:"fileId"`
		Suggestion json.RawMessage `json:"suggestion"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &data))
	assert.Equal(t, second, data.FileID)
	assert.JSONEq(t, `{"suggestedPath":"/Finance/Invoices","tags":["invoice"]}`, string(data.Suggestion))

	// the second file sees the first one as a neighbor, never itself
	analyzed := models.body("/api/analyze")
	assert.Contains(t, analyzed, "invoice 2 total 42")
	assert.Contains(t, analyzed, first)

	var organize map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(models.body("/api/organize")), &organize))
	assert.Equal(t, "file this invoice", organize["prompt"])
	assert.Equal(t, "text", organize["file_type"])
	assert.Equal(t, map[string]interface{}{}, organize["user_context"])
	assert.Equal(t, []interface{}{}, organize["allowed_tags"])
}

func TestNew_ModelServiceDown(t *testing.T) {
	_, embedSrv := newRecorder(t, map[string]string{"/embed": `{"vector":[1,0]}`})
	_, modelSrv := newRecorder(t, map[string]string{})

	a, err := New(context.Background(), testConfig(t, embedSrv.URL, modelSrv.URL), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	f, err := a.Service.Upload(context.Background(), service.UploadInput{
		Content: strings.NewReader("x"), Size: 1, OriginalName: "x.txt", MimeType: "text/plain",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/organization/suggest/file/"+f.ID, nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "STAGE1_ANALYZE")
}

func TestNew_ReleasesOnFailure(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""

	a, err := New(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestNewRateLimiter(t *testing.T) {
	l, err := newRateLimiter(config.RateLimiterConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, l)

	for _, algorithm := range []string{"tokenBucket", "leakyBucket", "fixedWindow", "slidingWindow", "slidingLog"} {
		l, err = newRateLimiter(config.RateLimiterConfig{Enabled: true, Algorithm: algorithm, Rate: 1, Capacity: 1})
		require.NoError(t, err, algorithm)
		assert.True(t, l.AllowKey("10.0.0.1"), algorithm)
		assert.False(t, l.AllowKey("10.0.0.1"), algorithm)
	}

	_, err = newRateLimiter(config.RateLimiterConfig{Enabled: true, Algorithm: "tokenBucket", Rate: 0, Capacity: 1})
	assert.Error(t, err)
}
