package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"file-organizer/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelServer records the last body per path and answers with the configured reply.
type modelServer struct {
	*httptest.Server
	bodies  map[string]string
	replies map[string]string
	status  int
}

func newModelServer(t *testing.T, replies map[string]string) *modelServer {
	t.Helper()
	ms := &modelServer{bodies: map[string]string{}, replies: replies, status: http.StatusOK}
	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		ms.bodies[r.URL.Path] = string(raw)
		w.WriteHeader(ms.status)
		_, _ = w.Write([]byte(ms.replies[r.URL.Path]))
	}))
	t.Cleanup(ms.Close)
	return ms
}

func (ms *modelServer) client() *Client {
	return NewClient(config.ModelServicesConfig{
		AnalyzeURL:        ms.URL + "/api/analyze",
		OrganizeURL:       ms.URL + "/api/organize",
		OrganizeBatchURL:  ms.URL + "/api/organize/batch",
		OrganizeFolderURL: ms.URL + "/api/organize/folder",
		Timeout:           "5s",
	}, config.CircuitBreakerConfig{})
}

func TestAnalyze(t *testing.T) {
	ms := newModelServer(t, map[string]string{"/api/analyze": `{"prompt":"organize this invoice"}`})

	prompt, err := ms.client().Analyze(context.Background(), `{"fileContent":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, "organize this invoice", prompt)
	assert.JSONEq(t, `{"content":"{\"fileContent\":\"x\"}"}`, ms.bodies["/api/analyze"])
}

func TestAnalyze_MissingPrompt(t *testing.T) {
	ms := newModelServer(t, map[string]string{"/api/analyze": `{"summary":"no prompt here"}`})

	_, err := ms.client().Analyze(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrMissingPrompt))
}

func TestOrganize_ForwardsVerbatimAndFillsDefaults(t *testing.T) {
	reply := `{"suggestedPath":"/Invoices/2024","tags":["finance"],"summary":"s","reasoning":"r","extra":{"k":1}}`
	ms := newModelServer(t, map[string]string{"/api/organize": reply})

	out, err := ms.client().Organize(context.Background(), OrganizeRequest{Prompt: "p", FileType: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, reply, string(out))
	assert.JSONEq(t, `{"prompt":"p","file_type":"pdf","user_context":{},"allowed_tags":[]}`, ms.bodies["/api/organize"])
}

func TestOrganize_EmptyBody(t *testing.T) {
	for _, body := range []string{"", "null", "  "} {
		ms := newModelServer(t, map[string]string{"/api/organize": body})
		_, err := ms.client().Organize(context.Background(), OrganizeRequest{Prompt: "p"})
		assert.True(t, errors.Is(err, ErrEmptyResult), "body %q: %v", body, err)
	}
}

func TestOrganize_ServerError(t *testing.T) {
	ms := newModelServer(t, map[string]string{"/api/organize": `boom`})
	ms.status = http.StatusInternalServerError

	_, err := ms.client().Organize(context.Background(), OrganizeRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestOrganizeBatch(t *testing.T) {
	ms := newModelServer(t, map[string]string{"/api/organize/batch": `{"results":[{"n":1},{"n":2}]}`})

	out, err := ms.client().OrganizeBatch(context.Background(), BatchRequest{Files: []OrganizeRequest{
		{Prompt: "a", FileType: "text", AllowedTags: []string{"x"}},
		{Prompt: "b", FileType: "image"},
	}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.JSONEq(t, `{"n":1}`, string(out[0]))
	assert.JSONEq(t, `{"n":2}`, string(out[1]))

	var sent BatchRequest
	require.NoError(t, json.Unmarshal([]byte(ms.bodies["/api/organize/batch"]), &sent))
	require.Len(t, sent.Files, 2)
	assert.Equal(t, []string{"x"}, sent.Files[0].AllowedTags)
	assert.Equal(t, []string{}, sent.Files[1].AllowedTags)
}

func TestOrganizeBatch_BadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"no results", `{"data":[]}`, ErrMissingResults},
		{"empty body", ``, ErrEmptyResult},
		{"count mismatch", `{"results":[{"n":1}]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newModelServer(t, map[string]string{"/api/organize/batch": tt.body})
			_, err := ms.client().OrganizeBatch(context.Background(), BatchRequest{Files: []OrganizeRequest{{Prompt: "a"}, {Prompt: "b"}}})
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "%v", err)
			}
		})
	}
}

func TestOrganizeFolder(t *testing.T) {
	reply := `{"folderName":"Receipts","tags":["finance"],"summary":"s","reasoning":"r"}`
	ms := newModelServer(t, map[string]string{"/api/organize/folder": reply})

	out, err := ms.client().OrganizeFolder(context.Background(), FolderRequest{
		FilePrompts:  []string{"p1", "p2"},
		AllowedTags:  []string{"A", "B"},
		ExistingTags: []string{"A", "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, reply, string(out))
	assert.JSONEq(t, `{"file_prompts":["p1","p2"],"user_context":{},"allowed_tags":["A","B"],"existing_folders":[],"existing_tags":["A","B"]}`,
		ms.bodies["/api/organize/folder"])
}
