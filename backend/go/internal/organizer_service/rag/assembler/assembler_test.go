package assembler

import (
	"encoding/json"
	"strings"
	"testing"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/rag/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_DefaultsAreEmptyNotNull(t *testing.T) {
	ctx := New(nil).Assemble("", nil, nil, nil)

	raw, err := ctx.Serialize()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "", decoded["fileContent"])
	assert.Equal(t, []interface{}{}, decoded["tags"])
	assert.Equal(t, []interface{}{}, decoded["similarFiles"])
	meta, ok := decoded["fileMetadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{}, meta["tags"])
}

func TestAssemble_CarriesInputs(t *testing.T) {
	file := &models.File{ID: "f1", OriginalName: "invoice.pdf", MimeType: "application/pdf",
		Tags: []models.Tag{{ID: "t1", Name: "finance"}}}
	similar := []vectorstore.Metadata{{"id": "f2"}, nil, {"id": "f3"}}

	ctx := New(nil).Assemble("total due", file, file.TagNames(), similar)

	assert.Equal(t, "total due", ctx.FileContent)
	assert.Equal(t, "invoice.pdf", ctx.FileMetadata.OriginalName)
	assert.Equal(t, []string{"finance"}, ctx.Tags)
	require.Len(t, ctx.SimilarFiles, 2)
	assert.Equal(t, "f3", ctx.SimilarFiles[1].ID())

	raw, err := ctx.Serialize()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, `{"fileContent":"total due","fileMetadata":{"id":"f1"`), raw)
}

func TestTokenTruncator(t *testing.T) {
	off := NewTokenTruncator(0)
	long := strings.Repeat("word ", 500)
	assert.Equal(t, long, off.Truncate(long))

	tr := NewTokenTruncator(10)
	assert.Equal(t, "short text", tr.Truncate("short text"))

	cut := tr.Truncate(long)
	assert.Less(t, len(cut), len(long))
	assert.True(t, strings.HasPrefix(long, cut))
}

func TestTokenTruncator_RuneFallback(t *testing.T) {
	tr := &TokenTruncator{maxTokens: 2}
	assert.Equal(t, "ÄÖÜßabcd", tr.Truncate("ÄÖÜßabcdefgh"))
	assert.Equal(t, "tiny", tr.Truncate("tiny"))
}
