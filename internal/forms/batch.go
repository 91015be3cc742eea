package forms

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

// BatchDetect detects fields in every matching document of a directory. A
// failing document is reported in its BatchItem and does not stop the run;
// cancellation is checked before each document starts.
func (s *Service) BatchDetect(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	search, err := s.SearchDirectory(SearchRequest{Directory: req.Directory, Query: req.Query})
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.workers
	}

	runID := uuid.NewString()
	started := time.Now()
	s.logger.Info("batch detection started",
		"run_id", runID,
		"directory", search.Directory,
		"documents", search.TotalCount,
		"workers", workers)

	items := make([]BatchItem, len(search.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range search.Files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = s.detectOne(gctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{
		RunID:     runID,
		Directory: search.Directory,
		Documents: items,
	}
	for _, item := range items {
		if item.Success {
			result.Succeeded++
			result.TotalFields += item.Fields
		} else {
			result.Failed++
		}
	}

	s.logger.Info("batch detection finished",
		"run_id", runID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"fields", result.TotalFields,
		"duration", time.Since(started))
	return result, nil
}

func (s *Service) detectOne(ctx context.Context, file FileInfo) BatchItem {
	item := BatchItem{Path: file.Path, Name: file.Name}

	detected, err := s.detect(ctx, file.Path)
	if err != nil {
		s.logger.Warn("batch document failed", "path", file.Path, "error", err)
		item.Error = err.Error()
		item.ErrorType = ferrors.TypeOf(err).String()
		return item
	}

	item.Success = true
	item.Fields = len(detected.Report.Fields)
	item.Counts = detected.Counts
	item.Category = string(detected.Classification.Category)
	return item
}
