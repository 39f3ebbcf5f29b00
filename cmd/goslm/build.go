package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/goslm/internal/logger"
	"github.com/philipparndt/goslm/pkg/pipeline"
	"github.com/philipparndt/goslm/pkg/stl"
)

// buildFlags are the config overrides shared by slice, supports and watch
type buildFlags struct {
	layerThickness float64
	strategy       string
	spacing        float64
	precision      string
	supportMode    string
	noSupports     bool
	failFast       bool
	workers        int
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.layerThickness, "layer-thickness", 0, "Layer thickness in mm")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Hatch strategy (alternating, stripe, island)")
	cmd.Flags().Float64Var(&f.spacing, "spacing", 0, "Hatch spacing in mm")
	cmd.Flags().StringVar(&f.precision, "precision", "", "Support projection (exact, approximate, auto)")
	cmd.Flags().StringVar(&f.supportMode, "support-mode", "", "Support fill (truss, block)")
	cmd.Flags().BoolVar(&f.noSupports, "no-supports", false, "Do not generate supports")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "Abort on the first failing layer")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "Number of worker goroutines (default: all CPUs)")
}

// apply writes the flags that were set into the loaded config
func (f *buildFlags) apply(cmd *cobra.Command) {
	changed := cmd.Flags().Changed
	if changed("layer-thickness") {
		cfg.Build.LayerThickness = f.layerThickness
	}
	if changed("strategy") {
		cfg.Hatch.Strategy = f.strategy
	}
	if changed("spacing") {
		cfg.Hatch.Spacing = f.spacing
	}
	if changed("precision") {
		cfg.Support.Precision = f.precision
	}
	if changed("support-mode") {
		cfg.Support.Mode = f.supportMode
	}
	if f.noSupports {
		cfg.Support.Enabled = false
	}
	if f.failFast {
		cfg.Build.FailFast = true
	}
	if changed("workers") {
		cfg.Build.Workers = f.workers
	}
}

// newPipeline builds a pipeline from the config
func newPipeline(log *zap.Logger, memo *pipeline.Memo) (*pipeline.Pipeline, error) {
	p, err := cfg.Parameters()
	if err != nil {
		return nil, err
	}
	styles, err := cfg.BuildStyles()
	if err != nil {
		return nil, err
	}
	return pipeline.New(p, pipeline.Options{
		Workers:  cfg.Build.Workers,
		FailFast: cfg.Build.FailFast,
		Logger:   log,
		Styles:   &styles,
		Memo:     memo,
	})
}

// loadPart reads an STL file and places it as configured
func loadPart(path string) (*stl.Model, error) {
	model, err := stl.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse STL file: %w", err)
	}
	return model.Apply(cfg.Transform()), nil
}

// build runs the pipeline over one file
func build(ctx context.Context, path string, memo *pipeline.Memo) (*pipeline.Result, error) {
	log := logger.ForRun(path)
	pl, err := newPipeline(log, memo)
	if err != nil {
		return nil, err
	}
	part, err := loadPart(path)
	if err != nil {
		return nil, err
	}
	return pl.Run(ctx, part)
}
