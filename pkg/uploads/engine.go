// Package uploads wires the chunk store, the assembler and the resumable
// adapter over one filesystem and exposes the chunk upload operations.
package uploads

import (
	"github.com/content-services/content-uploads-backend/pkg/assembly"
	"github.com/content-services/content-uploads-backend/pkg/chunk_store"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/dao"
	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/content-services/content-uploads-backend/pkg/instrumentation"
	"github.com/content-services/content-uploads-backend/pkg/notifications"
	"github.com/content-services/content-uploads-backend/pkg/resumable"
	"github.com/content-services/content-uploads-backend/pkg/sweeper"
	"github.com/spf13/afero"
)

type Engine struct {
	Config    config.Uploads
	Fs        afero.Fs
	Policy    *assembly.Policy
	Chunks    *chunk_store.Store
	Assembler *assembly.Assembler
	Resumable *resumable.Adapter
	Service   *ChunkService
}

type EngineOptions struct {
	Fs       afero.Fs
	Sessions resumable.SessionStore
	Files    dao.FileDao
	Notifier notifications.Notifier
	Metrics  *instrumentation.Metrics
	Sniffer  assembly.Sniffer
}

// NewEngine creates the storage roots and the components working on them
func NewEngine(cfg config.Uploads, opts EngineOptions) (*Engine, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	for _, root := range []string{cfg.BaseRoot, cfg.TempRoot} {
		if err := fs.MkdirAll(root, 0o750); err != nil {
			return nil, ce.WrapUploadError(ce.StorageUnavailable, err, "creating %s", root)
		}
	}
	chunks, err := chunk_store.NewStore(fs, cfg.ChunkRoot)
	if err != nil {
		return nil, err
	}

	sniffer := opts.Sniffer
	if sniffer == nil {
		sniffer = assembly.NewMimeSniffer()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNoopNotifier()
	}
	policy := assembly.NewPolicy(cfg)
	assembler := assembly.NewAssembler(fs, cfg.BaseRoot, policy, sniffer)

	adapter, err := resumable.NewAdapter(resumable.Options{
		Fs:         fs,
		TempRoot:   cfg.TempRoot,
		Sessions:   opts.Sessions,
		Assembler:  assembler,
		Policy:     policy,
		Files:      opts.Files,
		Notifier:   notifier,
		Expiration: cfg.SessionExpiration,
		Metrics:    opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		Config:    cfg,
		Fs:        fs,
		Policy:    policy,
		Chunks:    chunks,
		Assembler: assembler,
		Resumable: adapter,
		Service: &ChunkService{
			chunks:    chunks,
			assembler: assembler,
			policy:    policy,
			files:     opts.Files,
			notifier:  notifier,
			metrics:   opts.Metrics,
		},
	}, nil
}

// NewSweeper builds a sweeper over the roots of the engine
func (e *Engine) NewSweeper(metrics *instrumentation.Metrics) *sweeper.Sweeper {
	opts := sweeper.OptionsFromConfig(e.Config)
	opts.Fs = e.Fs
	opts.ChunkRoot = e.Chunks.Root()
	opts.Sessions = e.Resumable
	opts.Metrics = metrics
	return sweeper.NewSweeper(opts)
}
