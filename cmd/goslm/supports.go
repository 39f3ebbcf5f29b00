package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goslm/pkg/stl"
)

var (
	supportsOutput string
	supportsCells  int
	supportsFlags  buildFlags
)

var supportsCmd = &cobra.Command{
	Use:   "supports [file]",
	Short: "Export the generated support structures as STL",
	Long: `Generate supports for the part and tessellate them into a binary STL file
that can be checked next to the part in any viewer.`,
	Args: cobra.ExactArgs(1),
	RunE: runSupports,
}

func init() {
	rootCmd.AddCommand(supportsCmd)

	supportsCmd.Flags().StringVarP(&supportsOutput, "output", "o", "supports.stl", "Output STL file")
	supportsCmd.Flags().IntVar(&supportsCells, "cells", 0, "Marching cubes cells along the longest side (default from config)")
	supportsFlags.register(supportsCmd)
}

func runSupports(cmd *cobra.Command, args []string) error {
	supportsFlags.apply(cmd)
	cfg.Support.Enabled = true
	if cmd.Flags().Changed("cells") {
		cfg.Support.MeshCells = supportsCells
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := build(ctx, args[0], nil)
	if err != nil {
		return err
	}
	if res.Support == nil || len(res.Support.Volumes) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No supports needed")
		return nil
	}

	mesh, err := res.Support.Mesh(cfg.Build.LayerThickness, cfg.Support.MeshCells)
	if err != nil {
		return fmt.Errorf("failed to build support mesh: %w", err)
	}
	if err := stl.Save(supportsOutput, mesh); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d support volumes (%d triangles) to %s\n",
		len(res.Support.Volumes), mesh.TriangleCount(), supportsOutput)
	return nil
}
