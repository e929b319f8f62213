package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Queue is the part of the engine the loader submits to.
type Queue interface {
	Entries(ctx context.Context) ([]track.Reference, error)
	Replace(ctx context.Context, refs []track.Reference) error
	Append(ctx context.Context, refs []track.Reference) error
}

// LoadResult summarizes a completed load.
type LoadResult struct {
	Collection track.Collection
	Loaded     int
	Rejected   []filter.Rejection
}

// Loader fetches a collection, filters it and hands the new occurrences to the queue.
// Everything that can fail or block happens before the queue is touched.
type Loader struct {
	sources *Sources
	chain   *filter.Chain
	queue   Queue
}

// NewLoader creates a new Loader. A nil chain accepts every track.
func NewLoader(sources *Sources, chain *filter.Chain, queue Queue) *Loader {
	if chain == nil {
		chain = filter.NewChain()
	}
	return &Loader{sources: sources, chain: chain, queue: queue}
}

// Load fetches kind/id from the named source and replaces or extends the queue with it.
// An empty source name selects the first configured source. When every track is
// rejected the queue is left alone and ErrNothingToLoad is returned with the result.
func (l *Loader) Load(ctx context.Context, sourceName string, kind track.Kind, id string, mode filter.LoadMode) (*LoadResult, error) {
	var (
		src Source
		err error
	)
	if sourceName == "" {
		src, err = l.sources.Default()
	} else {
		src, err = l.sources.Get(sourceName)
	}
	if err != nil {
		return nil, err
	}

	collection, err := src.Fetch(ctx, kind, id)
	if err != nil {
		zlog.Warn().Msgf("load failed, queue unchanged: source=%s kind=%s id=%s error=%v", src.Name(), kind, id, err)
		return nil, errors.Wrap(err, "failed to fetch collection")
	}

	queued, err := l.queue.Entries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read queue")
	}

	accepted, rejected := l.chain.Apply(ctx, collection.Tracks, queued, mode)
	result := &LoadResult{Collection: collection, Rejected: rejected}
	if len(accepted) == 0 {
		zlog.Warn().Msgf("nothing to load, queue unchanged: source=%s kind=%s id=%s mode=%s rejected=%d",
			src.Name(), kind, id, mode, len(rejected))
		return result, errors.Wrapf(ErrNothingToLoad, "%s %s", kind, collection.Name)
	}
	refs := track.NewReferences(accepted)

	switch mode {
	case filter.ModeAppend:
		err = l.queue.Append(ctx, refs)
	default:
		err = l.queue.Replace(ctx, refs)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to %s queue", mode)
	}

	zlog.Info().Msgf("collection loaded: source=%s kind=%s name=%s mode=%s loaded=%d rejected=%d",
		src.Name(), kind, collection.Name, mode, len(refs), len(rejected))

	result.Loaded = len(refs)
	return result, nil
}
