// Package assembler builds the RAG context sent to the analysis model.
package assembler

import (
	"encoding/json"
	"fmt"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/rag/vectorstore"
)

// RagContext is the per-file bundle handed to the model services.
type RagContext struct {
	FileContent  string                 `json:"fileContent"`
	FileMetadata models.File            `json:"fileMetadata"`
	Tags         []string               `json:"tags"`
	SimilarFiles []vectorstore.Metadata `json:"similarFiles"`
}

// Assembler is a pure aggregation step. Missing inputs become empty values,
// never nulls.
type Assembler struct {
	truncator Truncator
}

// New returns an Assembler. A nil truncator keeps content untouched.
func New(t Truncator) *Assembler {
	if t == nil {
		t = NoTruncation{}
	}
	return &Assembler{truncator: t}
}

func (a *Assembler) Assemble(content string, file *models.File, tags []string, similar []vectorstore.Metadata) RagContext {
	ctx := RagContext{
		FileContent:  a.truncator.Truncate(content),
		Tags:         []string{},
		SimilarFiles: []vectorstore.Metadata{},
	}
	if file != nil {
		ctx.FileMetadata = *file
	}
	if ctx.FileMetadata.Tags == nil {
		ctx.FileMetadata.Tags = []models.Tag{}
	}
	if tags != nil {
		ctx.Tags = append(ctx.Tags, tags...)
	}
	for _, m := range similar {
		if m != nil {
			ctx.SimilarFiles = append(ctx.SimilarFiles, m)
		}
	}
	return ctx
}

// Serialize renders the context as the JSON string used as a model prompt.
func (c RagContext) Serialize() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to serialize rag context: %w", err)
	}
	return string(raw), nil
}
