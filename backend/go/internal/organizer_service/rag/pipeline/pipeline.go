// Package pipeline runs the RAG-assisted organization suggestion flow:
//
//	FETCH_METADATA -> EXTRACT_CONTENT -> EMBED -> INDEX_UPSERT -> INDEX_QUERY
//	    -> ASSEMBLE_CONTEXT -> STAGE1_ANALYZE -> STAGE2_ORGANIZE
//
// for a single file, a batch of files or every file in a folder.
package pipeline

import (
	"context"
	"encoding/json"

	"file-organizer/backend/go/internal/embedding"
	"file-organizer/backend/go/internal/llm"
	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/rag/assembler"
	"file-organizer/backend/go/internal/organizer_service/rag/extractor"
	"file-organizer/backend/go/internal/organizer_service/rag/vectorstore"
	"file-organizer/backend/go/pkg/logger"
)

// FileSource is the read side of the relational store.
type FileSource interface {
	GetFile(ctx context.Context, id string) (*models.File, error)
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	FilesInFolder(ctx context.Context, folderID string) ([]models.File, error)
}

// Localizer makes a stored file available as a local path.
type Localizer interface {
	Localize(ctx context.Context, name string) (path string, cleanup func(), err error)
}

// ModelService is the two-stage model backend.
type ModelService interface {
	Analyze(ctx context.Context, content string) (string, error)
	Organize(ctx context.Context, req llm.OrganizeRequest) (json.RawMessage, error)
	OrganizeBatch(ctx context.Context, req llm.BatchRequest) ([]json.RawMessage, error)
	OrganizeFolder(ctx context.Context, req llm.FolderRequest) (json.RawMessage, error)
}

// Mode selects which entry point is running; it changes the EMBED policy.
type Mode int

const (
	ModeSingle Mode = iota
	ModeBatch
	ModeFolder
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeBatch:
		return "batch"
	case ModeFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Policy is what happens when a stage fails.
type Policy int

const (
	// Fatal aborts the request.
	Fatal Policy = iota
	// Fallback substitutes a default value and continues.
	Fallback
	// Ignore drops the error.
	Ignore
)

// PolicyFor returns the failure policy of stage in mode.
func PolicyFor(stage apperr.Stage, mode Mode) Policy {
	switch stage {
	case apperr.StageExtractContent, apperr.StageIndexQuery:
		return Fallback
	case apperr.StageIndexUpsert:
		return Ignore
	case apperr.StageEmbed:
		if mode == ModeSingle {
			return Fatal
		}
		return Fallback
	default:
		return Fatal
	}
}

// Options tune the pipeline.
type Options struct {
	Collection string
	TopK       int
	// Concurrency bounds per-file preparation in batch and folder mode.
	Concurrency int
	// AnalyzeBatchPayloads runs STAGE1_ANALYZE per file in batch and folder
	// mode; otherwise the serialized context is the prompt.
	AnalyzeBatchPayloads bool
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Files     FileSource
	Blobs     Localizer
	Extractor extractor.Extractor
	Embedder  embedding.Embedder
	Index     vectorstore.Index
	Assembler *assembler.Assembler
	Models    ModelService
}

// Pipeline orchestrates the suggestion stages.
type Pipeline struct {
	files     FileSource
	blobs     Localizer
	extractor extractor.Extractor
	embedder  embedding.Embedder
	index     vectorstore.Index
	assembler *assembler.Assembler
	models    ModelService
	opts      Options
	log       *logger.Logger
}

// New creates a Pipeline.
func New(deps Deps, opts Options, log *logger.Logger) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Collection == "" {
		opts.Collection = "files"
	}
	if deps.Assembler == nil {
		deps.Assembler = assembler.New(nil)
	}
	return &Pipeline{
		files:     deps.Files,
		blobs:     deps.Blobs,
		extractor: deps.Extractor,
		embedder:  deps.Embedder,
		index:     deps.Index,
		assembler: deps.Assembler,
		models:    deps.Models,
		opts:      opts,
		log:       log,
	}
}

// FileSuggestion is the outcome of the single-file flow.
type FileSuggestion struct {
	FileID     string          `json:"fileId"`
	Suggestion json.RawMessage `json:"suggestion"`
}

// BatchSuggestion holds one result per found file, in request order.
type BatchSuggestion struct {
	FileIDs []string          `json:"fileIds"`
	Results []json.RawMessage `json:"results"`
	Skipped []string          `json:"skipped"`
}

// FolderSuggestion is one suggestion covering every file of a folder.
type FolderSuggestion struct {
	FolderID   string          `json:"folderId"`
	FileIDs    []string        `json:"fileIds"`
	Tags       []string        `json:"tags"`
	Suggestion json.RawMessage `json:"suggestion"`
}
