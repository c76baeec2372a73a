package syncapi

import (
	"context"

	"go.uber.org/zap"

	syncengine "docsync/core/sync"
)

// Service runs sync operations against the wired reader and store.
type Service struct {
	reader   syncengine.Reader
	store    syncengine.Store
	defaults syncengine.Config
	logger   *zap.Logger
}

// NewService creates a new sync service. The defaults are the configured run
// options; requests may override them per run.
func NewService(reader syncengine.Reader, store syncengine.Store, defaults syncengine.Config, logger *zap.Logger) *Service {
	return &Service{
		reader:   reader,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// RunRequest carries per-request overrides of the configured run options.
type RunRequest struct {
	Strategy              string `json:"strategy"`
	Table                 string `json:"table"`
	Collection            string `json:"collection"`
	PrimaryKeyField       string `json:"primary_key_field"`
	ChecksumExcludeFields string `json:"checksum_exclude_fields"`
	BatchSize             int    `json:"batch_size"`
	DryRun                bool   `json:"dry_run"`
}

func (s *Service) resolve(req RunRequest) syncengine.Config {
	cfg := s.defaults
	if req.Strategy != "" {
		cfg.Strategy = req.Strategy
	}
	if req.Table != "" {
		cfg.Table = req.Table
	}
	if req.Collection != "" {
		cfg.Collection = req.Collection
	}
	if req.PrimaryKeyField != "" {
		cfg.PrimaryKeyField = req.PrimaryKeyField
	}
	if req.ChecksumExcludeFields != "" {
		cfg.ChecksumExcludeFields = req.ChecksumExcludeFields
	}
	if req.BatchSize > 0 {
		cfg.BatchSize = req.BatchSize
	}
	return cfg
}

// Run executes one sync run with the resolved options.
func (s *Service) Run(ctx context.Context, req RunRequest) (*syncengine.Report, error) {
	engine, err := syncengine.NewEngine(s.reader, s.store, s.resolve(req), s.logger)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx)
}

// Preview computes the change set without writing anything.
func (s *Service) Preview(ctx context.Context, req RunRequest) (*syncengine.Plan, error) {
	engine, err := syncengine.NewEngine(s.reader, s.store, s.resolve(req), s.logger)
	if err != nil {
		return nil, err
	}
	return engine.Plan(ctx)
}

// Strategies lists the available strategy names.
func (s *Service) Strategies() []string {
	strategies := syncengine.Strategies()
	names := make([]string, len(strategies))
	for i, strategy := range strategies {
		names[i] = string(strategy)
	}
	return names
}
