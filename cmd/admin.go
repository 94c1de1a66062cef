package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/bookclub/internal/formatter"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/desertthunder/bookclub/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loadManager fetches kind and its related collections.
func (r *Runner) loadManager(ctx context.Context, kind resource.Kind) (*resource.Manager, error) {
	api, err := r.api()
	if err != nil {
		return nil, err
	}
	mgr := resource.NewManager(kind, api, r.logger)
	if err := mgr.Load(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

// target loads kind and returns the manager with the row named by the id argument.
func (r *Runner) target(ctx context.Context, cmd *cli.Command, kind resource.Kind) (*resource.Manager, resource.Row, error) {
	id, err := requireID(cmd)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := r.loadManager(ctx, kind)
	if err != nil {
		return nil, nil, err
	}
	row, ok := mgr.Lookup(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind.Name, id)
	}
	return mgr, row, nil
}

// AdminList prints the derived rows of kind.
func (r *Runner) AdminList(ctx context.Context, cmd *cli.Command, kind resource.Kind) error {
	mgr, err := r.loadManager(ctx, kind)
	if err != nil {
		return err
	}
	return r.writeRows(cmd, kind, mgr.Raw())
}

// AdminStats prints the summary figures of kind.
func (r *Runner) AdminStats(ctx context.Context, cmd *cli.Command, kind resource.Kind) error {
	mgr, err := r.loadManager(ctx, kind)
	if err != nil {
		return err
	}
	stats := mgr.Stats()
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}
	r.writePlainHeader(kind.Title)
	return r.writePlain("%s", formatter.StatsText(kind, stats))
}

// stage applies --set assignments to the open draft.
func stage(ctrl *resource.Controller, values []string) error {
	sets, err := parseAssignments(values)
	if err != nil {
		return err
	}
	for _, s := range sets {
		if err := ctrl.SetInput(s[0], s[1]); err != nil {
			return err
		}
	}
	return nil
}

// submit sends the open draft and explains validation failures field by field.
func (r *Runner) submit(ctx context.Context, ctrl *resource.Controller) error {
	err := ctrl.Submit(ctx)
	if errors.Is(err, shared.ErrValidation) {
		errs := ctrl.FieldErrors()
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		slices.Sort(fields)
		for _, f := range fields {
			r.writePlain("  ✗ %s\n", errs[f])
		}
	}
	return err
}

// AdminAdd creates a record of kind from --set assignments.
func (r *Runner) AdminAdd(ctx context.Context, cmd *cli.Command, kind resource.Kind) error {
	api, err := r.api()
	if err != nil {
		return err
	}
	mgr := resource.NewManager(kind, api, r.logger)
	ctrl := mgr.Controller()
	if err := ctrl.OpenAdd(); err != nil {
		return err
	}
	if err := stage(ctrl, cmd.StringSlice("set")); err != nil {
		return err
	}
	if err := r.submit(ctx, ctrl); err != nil {
		return err
	}

	r.logger.Info("created", "resource", kind.Name)
	noun := strings.TrimSuffix(strings.ToLower(kind.Title), "s")
	if mgr.Status() != resource.Ready {
		return r.writePlain("✓ Created %s (refresh failed: %s)\n", noun, mgr.ErrMessage())
	}
	return r.writePlain("✓ Created %s (%d total)\n", noun, len(mgr.Raw()))
}

// AdminEdit updates a record of kind from --set assignments.
func (r *Runner) AdminEdit(ctx context.Context, cmd *cli.Command, kind resource.Kind) error {
	mgr, row, err := r.target(ctx, cmd, kind)
	if err != nil {
		return err
	}
	ctrl := mgr.Controller()
	if err := ctrl.OpenEdit(row); err != nil {
		return err
	}
	if err := stage(ctrl, cmd.StringSlice("set")); err != nil {
		return err
	}
	if err := r.submit(ctx, ctrl); err != nil {
		return err
	}

	r.logger.Info("updated", "resource", kind.Name, "id", row.ID())
	return r.writePlain("✓ Updated %s\n", row.ID())
}

// AdminDelete deletes a record of kind after confirmation.
func (r *Runner) AdminDelete(ctx context.Context, cmd *cli.Command, kind resource.Kind) error {
	mgr, row, err := r.target(ctx, cmd, kind)
	if err != nil {
		return err
	}
	ctrl := mgr.Controller()
	if err := ctrl.OpenDelete(row); err != nil {
		return err
	}

	label := row.ID()
	for _, f := range []string{"title", "name"} {
		if v := row.String(f); v != "" {
			label = v
			break
		}
	}

	if !cmd.Bool("yes") && !r.confirm(fmt.Sprintf("Delete %q? This cannot be undone.", label)) {
		_ = ctrl.Cancel()
		return r.writePlain("Cancelled\n")
	}

	if err := ctrl.Confirm(ctx); err != nil {
		return err
	}

	r.logger.Info("deleted", "resource", kind.Name, "id", row.ID())
	return r.writePlain("✓ Deleted %s\n", label)
}

// AdminExport writes the selected kinds to files with a manifest.
func (r *Runner) AdminExport(ctx context.Context, cmd *cli.Command) error {
	config, err := r.Config()
	if err != nil {
		return err
	}
	api, err := r.api()
	if err != nil {
		return err
	}

	name := cmd.String("format")
	if name == "" {
		name = config.Export.Format
	}
	format, err := formatter.ParseFormat(name)
	if err != nil {
		return err
	}

	kinds := resource.Kinds()
	if names := cmd.StringSlice("kind"); len(names) > 0 {
		kinds = kinds[:0:0]
		for _, n := range names {
			k, err := resource.KindByName(n)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}
	}

	opts := tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = config.Export.Workers
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = config.Export.RateLimit
	}

	progressCh := make(chan tasks.ProgressUpdate, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := tasks.NewExporter(api, r.logger).Export(ctx, progressCh, kinds, opts)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("Export complete: %d succeeded, %d failed", result.Successful, result.Failed)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d exports failed", shared.ErrAPIRequest, result.Failed, result.Total)
	}
	return nil
}
