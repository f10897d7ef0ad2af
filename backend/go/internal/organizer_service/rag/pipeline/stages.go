package pipeline

import (
	"context"
	"fmt"
	"strings"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/rag/assembler"
	"file-organizer/backend/go/internal/organizer_service/rag/vectorstore"

	"golang.org/x/sync/errgroup"
)

// prepared is a file after ASSEMBLE_CONTEXT.
type prepared struct {
	file    *models.File
	content string
	vector  []float32
	context assembler.RagContext
	prompt  string
}

// fetch runs FETCH_METADATA. A missing file is always NotFound.
func (p *Pipeline) fetch(ctx context.Context, fileID string) (*models.File, error) {
	f, err := p.files.GetFile(ctx, fileID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", apperr.StageFetchMetadata, err)
	}
	return f, nil
}

// extract runs EXTRACT_CONTENT. It never fails: an empty result falls back to
// the display name.
func (p *Pipeline) extract(ctx context.Context, f *models.File) string {
	content := ""
	path, cleanup, err := p.blobs.Localize(ctx, f.Name)
	if err != nil {
		p.log.WithField("file_id", f.ID).Warn(fmt.Sprintf("could not localize %s: %v", f.Name, err))
	} else {
		content = p.extractor.Extract(ctx, path, f.MimeType)
		cleanup()
	}
	if strings.TrimSpace(content) == "" {
		p.log.WithField("file_id", f.ID).Info("no extractable content, using the original name")
		return f.OriginalName
	}
	return content
}

// embed runs EMBED under the policy for mode. A nil vector with a nil error
// means the stage degraded.
func (p *Pipeline) embed(ctx context.Context, f *models.File, content string, mode Mode) ([]float32, error) {
	vec, err := p.embedder.Embed(ctx, content)
	if err == nil {
		return vec, nil
	}
	if PolicyFor(apperr.StageEmbed, mode) == Fatal {
		p.log.WithFields(map[string]interface{}{"file_id": f.ID, "stage": apperr.StageEmbed}).
			Error(fmt.Sprintf("embedding failed: %v", err))
		return nil, apperr.External(apperr.StageEmbed, err)
	}
	p.log.WithFields(map[string]interface{}{"file_id": f.ID, "stage": apperr.StageEmbed}).
		Warn(fmt.Sprintf("embedding failed, continuing without a vector: %v", err))
	return nil, nil
}

// upsert runs INDEX_UPSERT. Failures are ignored.
func (p *Pipeline) upsert(ctx context.Context, f *models.File, vec []float32) {
	err := p.index.Upsert(ctx, p.opts.Collection, f.ID, vec, FileMetadata(f))
	switch {
	case err == nil:
	case vectorstore.IsAlreadyExists(err):
		p.log.WithField("file_id", f.ID).Debug("vector already indexed")
	default:
		p.log.WithFields(map[string]interface{}{"file_id": f.ID, "stage": apperr.StageIndexUpsert}).
			Warn(fmt.Sprintf("index upsert failed: %v", err))
	}
}

// similar runs INDEX_QUERY. Failures yield an empty list; the file itself is
// never part of the result.
func (p *Pipeline) similar(ctx context.Context, f *models.File, vec []float32) []vectorstore.Metadata {
	if p.opts.TopK <= 0 {
		return []vectorstore.Metadata{}
	}
	hits, err := p.index.Query(ctx, p.opts.Collection, vec, p.opts.TopK+1)
	if err != nil {
		p.log.WithFields(map[string]interface{}{"file_id": f.ID, "stage": apperr.StageIndexQuery}).
			Warn(fmt.Sprintf("index query failed, no similar files: %v", err))
		return []vectorstore.Metadata{}
	}
	out := make([]vectorstore.Metadata, 0, p.opts.TopK)
	for _, h := range hits {
		if h.ID() == f.ID {
			continue
		}
		if len(out) == p.opts.TopK {
			break
		}
		out = append(out, h)
	}
	return out
}

// prepare runs EXTRACT_CONTENT through ASSEMBLE_CONTEXT for one file.
func (p *Pipeline) prepare(ctx context.Context, f *models.File, mode Mode) (*prepared, error) {
	content := p.extract(ctx, f)

	vec, err := p.embed(ctx, f, content, mode)
	if err != nil {
		return nil, err
	}

	similar := []vectorstore.Metadata{}
	if len(vec) > 0 {
		p.upsert(ctx, f, vec)
		similar = p.similar(ctx, f, vec)
	}

	rc := p.assembler.Assemble(content, f, f.TagNames(), similar)
	prompt, err := rc.Serialize()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", apperr.StageAssemble, err)
	}
	return &prepared{file: f, content: content, vector: vec, context: rc, prompt: prompt}, nil
}

// prepareAll prepares files concurrently; the result keeps the input order.
// When analyze is set each file's prompt is replaced by the STAGE1_ANALYZE
// output.
func (p *Pipeline) prepareAll(ctx context.Context, files []*models.File, mode Mode, analyze bool) ([]*prepared, error) {
	out := make([]*prepared, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			prep, err := p.prepare(gctx, f, mode)
			if err != nil {
				return err
			}
			if analyze {
				prompt, err := p.analyze(gctx, f, prep.prompt)
				if err != nil {
					return err
				}
				prep.prompt = prompt
			}
			out[i] = prep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// analyze runs STAGE1_ANALYZE. Always fatal.
func (p *Pipeline) analyze(ctx context.Context, f *models.File, content string) (string, error) {
	prompt, err := p.models.Analyze(ctx, content)
	if err != nil {
		p.log.WithFields(map[string]interface{}{"file_id": f.ID, "stage": apperr.StageAnalyze}).
			Error(fmt.Sprintf("analyze failed: %v", err))
		return "", apperr.External(apperr.StageAnalyze, err)
	}
	return prompt, nil
}

// FileMetadata is the metadata stored next to a file's vector.
func FileMetadata(f *models.File) vectorstore.Metadata {
	folderID := ""
	if f.FolderID != nil {
		folderID = *f.FolderID
	}
	return vectorstore.Metadata{
		"id":           f.ID,
		"name":         f.Name,
		"originalName": f.OriginalName,
		"mimeType":     f.MimeType,
		"path":         f.Path,
		"folderId":     folderID,
		"description":  f.Description,
		"tags":         strings.Join(f.TagNames(), ","),
		"userId":       f.UserID,
	}
}

// Index runs EXTRACT_CONTENT, EMBED and INDEX_UPSERT for one file. Unlike the
// suggestion flows it reports embed and upsert failures.
func (p *Pipeline) Index(ctx context.Context, f *models.File) error {
	content := p.extract(ctx, f)
	vec, err := p.embedder.Embed(ctx, content)
	if err != nil {
		return apperr.External(apperr.StageEmbed, err)
	}
	err = p.index.Upsert(ctx, p.opts.Collection, f.ID, vec, FileMetadata(f))
	if err != nil && !vectorstore.IsAlreadyExists(err) {
		return apperr.External(apperr.StageIndexUpsert, err)
	}
	return nil
}
