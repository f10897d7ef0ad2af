package pipeline

import (
	"context"
	"fmt"

	"file-organizer/backend/go/internal/llm"
	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
)

// SuggestFile runs the full pipeline for one file.
func (p *Pipeline) SuggestFile(ctx context.Context, fileID string, userContext map[string]interface{}) (*FileSuggestion, error) {
	log := p.log.WithFields(map[string]interface{}{"file_id": fileID, "mode": ModeSingle.String()})
	log.Info("generating organization suggestion")

	f, err := p.fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	prep, err := p.prepare(ctx, f, ModeSingle)
	if err != nil {
		return nil, err
	}
	prompt, err := p.analyze(ctx, f, prep.prompt)
	if err != nil {
		return nil, err
	}

	result, err := p.models.Organize(ctx, llm.OrganizeRequest{
		Prompt:      prompt,
		FileType:    f.FileType(),
		UserContext: userContext,
		AllowedTags: f.TagNames(),
	})
	if err != nil {
		log.WithField("stage", apperr.StageOrganize).Error(fmt.Sprintf("organize failed: %v", err))
		return nil, apperr.External(apperr.StageOrganize, err)
	}
	log.Info("organization suggestion generated")
	return &FileSuggestion{FileID: f.ID, Suggestion: result}, nil
}

// SuggestBatch prepares every found file and sends them in one batch call.
// Missing files are skipped.
func (p *Pipeline) SuggestBatch(ctx context.Context, fileIDs []string, userContext map[string]interface{}) (*BatchSuggestion, error) {
	if len(fileIDs) == 0 {
		return nil, apperr.Validation("fileIds must not be empty")
	}
	log := p.log.WithFields(map[string]interface{}{"mode": ModeBatch.String(), "requested": len(fileIDs)})

	files := make([]*models.File, 0, len(fileIDs))
	skipped := []string{}
	for _, id := range fileIDs {
		f, err := p.fetch(ctx, id)
		if apperr.IsNotFound(err) {
			log.WithField("file_id", id).Warn("file not found, skipping")
			skipped = append(skipped, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, apperr.NotFound("none of the requested files were found")
	}

	preps, err := p.prepareAll(ctx, files, ModeBatch, p.opts.AnalyzeBatchPayloads)
	if err != nil {
		return nil, err
	}

	req := llm.BatchRequest{Files: make([]llm.OrganizeRequest, len(preps))}
	ids := make([]string, len(preps))
	for i, prep := range preps {
		ids[i] = prep.file.ID
		req.Files[i] = llm.OrganizeRequest{
			Prompt:      prep.prompt,
			FileType:    prep.file.FileType(),
			UserContext: userContext,
			AllowedTags: prep.file.TagNames(),
		}
	}

	results, err := p.models.OrganizeBatch(ctx, req)
	if err != nil {
		log.WithField("stage", apperr.StageOrganize).Error(fmt.Sprintf("batch organize failed: %v", err))
		return nil, apperr.External(apperr.StageOrganize, err)
	}
	if len(results) != len(ids) {
		err := fmt.Errorf("batch organize returned %d results for %d files", len(results), len(ids))
		log.WithField("stage", apperr.StageOrganize).Error(err.Error())
		return nil, apperr.External(apperr.StageOrganize, err)
	}
	log.Info(fmt.Sprintf("batch suggestion generated for %d files, %d skipped", len(ids), len(skipped)))
	return &BatchSuggestion{FileIDs: ids, Results: results, Skipped: skipped}, nil
}

// SuggestFolder prepares every file directly in the folder and asks for one
// folder name and tag set covering all of them.
func (p *Pipeline) SuggestFolder(ctx context.Context, folderID string, userContext map[string]interface{}) (*FolderSuggestion, error) {
	log := p.log.WithFields(map[string]interface{}{"folder_id": folderID, "mode": ModeFolder.String()})

	if _, err := p.files.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	rows, err := p.files.FilesInFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("no files found in folder %s", folderID)
	}
	files := make([]*models.File, len(rows))
	for i := range rows {
		files[i] = &rows[i]
	}

	preps, err := p.prepareAll(ctx, files, ModeFolder, p.opts.AnalyzeBatchPayloads)
	if err != nil {
		return nil, err
	}

	prompts := make([]string, len(preps))
	ids := make([]string, len(preps))
	union := newTagUnion()
	for i, prep := range preps {
		prompts[i] = prep.prompt
		ids[i] = prep.file.ID
		union.add(prep.file.TagNames()...)
	}
	tags := union.list()

	result, err := p.models.OrganizeFolder(ctx, llm.FolderRequest{
		FilePrompts:     prompts,
		UserContext:     userContext,
		AllowedTags:     tags,
		ExistingFolders: []string{},
		ExistingTags:    tags,
	})
	if err != nil {
		log.WithField("stage", apperr.StageOrganize).Error(fmt.Sprintf("folder organize failed: %v", err))
		return nil, apperr.External(apperr.StageOrganize, err)
	}
	log.Info(fmt.Sprintf("folder suggestion generated for %d files", len(ids)))
	return &FolderSuggestion{FolderID: folderID, FileIDs: ids, Tags: tags, Suggestion: result}, nil
}

// tagUnion keeps first-seen order without duplicates.
type tagUnion struct {
	seen  map[string]struct{}
	order []string
}

func newTagUnion() *tagUnion {
	return &tagUnion{seen: map[string]struct{}{}, order: []string{}}
}

func (u *tagUnion) add(names ...string) {
	for _, n := range names {
		if _, ok := u.seen[n]; ok {
			continue
		}
		u.seen[n] = struct{}{}
		u.order = append(u.order, n)
	}
}

func (u *tagUnion) list() []string { return u.order }
