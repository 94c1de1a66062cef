package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/formatter"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestName is the file written next to the exported collections.
const ManifestName = "export_manifest.json"

// ExportOpts contains configuration for bulk exports.
type ExportOpts struct {
	Format     formatter.Format // csv, json, markdown or table (plain text)
	OutputDir  string           // default: bookclub_export_{epoch}
	NumWorkers int              // concurrent workers (default: 4, max: 8)
	RateLimit  float64          // collection requests per second (default: 5)
}

// KindExportResult is the outcome for one resource kind.
type KindExportResult struct {
	Kind    string `json:"kind"`
	Rows    int    `json:"rows"`
	File    string `json:"file,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExportResult summarizes a bulk export and is written as the manifest.
type ExportResult struct {
	Format          formatter.Format   `json:"format"`
	OutputDirectory string             `json:"output_directory"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	Total           int                `json:"total"`
	Successful      int                `json:"successful"`
	Failed          int                `json:"failed"`
	Results         []KindExportResult `json:"results"`
	ManifestPath    string             `json:"-"`
}

// Exporter fetches admin collections and writes them to disk.
type Exporter struct {
	fetcher *resource.Fetcher
	logger  *log.Logger
	now     func() time.Time
}

// NewExporter creates an [Exporter] over api.
func NewExporter(api resource.API, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{fetcher: resource.NewFetcher(api, logger), logger: logger, now: time.Now}
}

// Export writes each kind concurrently with rate limiting and progress tracking.
//
// A failing kind does not stop the others; its error is recorded in the result and the manifest.
// The returned error is non-nil only when the export could not run or the manifest could not be written.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, kinds []resource.Kind, opts ExportOpts) (*ExportResult, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: no resources to export", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("bookclub_export_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		StartedAt:       e.now(),
		Total:           len(kinds),
		Results:         make([]KindExportResult, 0, len(kinds)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan resource.Kind, len(kinds))
	results := make(chan KindExportResult, len(kinds))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, limiter, jobs, results, opts)
	}

	sendProgress(prog, fetchingCollectionsUpdate(len(kinds)))
	for _, k := range kinds {
		jobs <- k
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(kinds), res.Kind, res.Rows))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(kinds), res.Kind, res.Error))
		}
	}
	result.FinishedAt = e.now()

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

func (e *Exporter) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan resource.Kind,
	results chan<- KindExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for kind := range jobs {
		results <- e.exportKind(ctx, limiter, kind, opts)
	}
}

func (e *Exporter) exportKind(ctx context.Context, limiter *rate.Limiter, kind resource.Kind, opts ExportOpts) KindExportResult {
	res := KindExportResult{Kind: kind.Name}

	if err := limiter.Wait(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	data, err := e.fetcher.Fetch(ctx, kind.Endpoint())
	if err != nil {
		e.logger.Warn("export fetch failed", "kind", kind.Name, "error", err)
		res.Error = err.Error()
		return res
	}

	rows := data.Get(kind.Name)
	path, err := formatter.WriteExport(opts.Format, kind, rows, opts.OutputDir)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Rows = len(rows)
	res.File = path
	res.Success = true
	return res
}

func writeManifest(result *ExportResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// sendProgress sends without blocking; updates are dropped when the channel is full.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
