package resource

import (
	"context"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/shared"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the REST client the resource manager needs.
// [services.Client] satisfies it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, auth bool) (any, error)
	Post(ctx context.Context, path string, body any, auth bool) (any, error)
	Put(ctx context.Context, path string, body any, auth bool) (any, error)
	Delete(ctx context.Context, path string, auth bool) error
}

// Endpoint describes one list request.
type Endpoint struct {
	Name  string // key in [Result.Data]
	Path  string
	Query url.Values
	Keys  []string // wrapper keys probed after "data" and "items"
	Auth  bool
}

// Result holds the normalized collections of one fetch, keyed by endpoint name.
type Result struct {
	Data map[string]Rows
}

// Get returns the rows for name, or an empty collection.
func (r Result) Get(name string) Rows {
	if rows, ok := r.Data[name]; ok {
		return rows
	}
	return Rows{}
}

// Fetcher issues list requests concurrently and normalizes their bodies.
type Fetcher struct {
	api    API
	logger *log.Logger
}

// NewFetcher creates a [Fetcher] over api.
func NewFetcher(api API, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{api: api, logger: logger}
}

// Fetch requests every endpoint in parallel. The first failure cancels the remaining requests and is
// returned as the only error; no partial data is returned alongside it.
func (f *Fetcher) Fetch(ctx context.Context, endpoints ...Endpoint) (Result, error) {
	bodies := make([]Rows, len(endpoints))
	g, gctx := errgroup.WithContext(ctx)

	for i, ep := range endpoints {
		g.Go(func() error {
			body, err := f.api.Get(gctx, ep.Path, ep.Query, ep.Auth)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", ep.Name, err)
			}
			bodies[i] = Normalize(body, ep.Keys...)
			f.logger.Debug("fetched collection", "endpoint", ep.Name, "rows", len(bodies[i]))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Data: make(map[string]Rows, len(endpoints))}
	for i, ep := range endpoints {
		res.Data[ep.Name] = bodies[i]
	}
	return res, nil
}
