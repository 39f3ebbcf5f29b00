package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goslm/pkg/analysis"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about an STL file",
	Long:  "Show dimensions, triangle and edge statistics, the manifold check and the overhang area as the part would be built.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	p, err := cfg.Parameters()
	if err != nil {
		return err
	}
	model, err := loadPart(filename)
	if err != nil {
		return err
	}
	result, err := analysis.Analyze(cmd.Context(), model, p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "STL File Information")
	fmt.Fprintln(out, "====================")
	if model.Name != "" {
		fmt.Fprintf(out, "Name: %s\n", model.Name)
	}
	fmt.Fprintf(out, "File: %s\n\n", filename)

	fmt.Fprintln(out, "Model Statistics:")
	fmt.Fprintf(out, "  Triangles: %d\n", result.TriangleCount)
	fmt.Fprintf(out, "  Edges: %d\n", result.EdgeCount)
	fmt.Fprintf(out, "  Surface Area: %.4f mm²\n", result.SurfaceArea)
	fmt.Fprintf(out, "  Volume: %.4f mm³\n", result.Volume)
	if result.ManifoldErr != nil {
		fmt.Fprintf(out, "  Manifold: no (%v)\n", result.ManifoldErr)
	} else {
		fmt.Fprintln(out, "  Manifold: yes")
	}
	if result.Degenerate > 0 {
		fmt.Fprintf(out, "  Degenerate triangles: %d\n", result.Degenerate)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Bounding Box:")
	fmt.Fprintf(out, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(out, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(out, "  Size: %s\n\n", analysis.FormatVector(result.Dimensions))

	fmt.Fprintln(out, "Edge Lengths:")
	fmt.Fprintf(out, "  Minimum: %.4f mm\n", result.MinEdgeLength)
	fmt.Fprintf(out, "  Maximum: %.4f mm\n", result.MaxEdgeLength)
	fmt.Fprintf(out, "  Average: %.4f mm\n\n", result.AvgEdgeLength)

	fmt.Fprintln(out, "Build:")
	fmt.Fprintf(out, "  Layers: %d at %.3f mm\n", result.Layers, p.LayerThickness)
	if result.ManifoldErr == nil {
		fmt.Fprintf(out, "  Largest section: %.4f mm² (%d holes max)\n", result.Sections.MaxArea, result.Sections.MaxHoles)
		if len(result.Sections.Failed) > 0 {
			fmt.Fprintf(out, "  Unsliceable layers: %v\n", result.Sections.Failed)
		}
	}
	fmt.Fprintf(out, "  Overhang faces: %d (threshold %.1f°)\n", result.Overhang.Faces, p.OverhangAngleThreshold)
	fmt.Fprintf(out, "  Overhang surfaces: %d\n", result.Overhang.Surfaces)
	fmt.Fprintf(out, "  Overhang area: %.4f mm² (largest %.4f mm²)\n", result.Overhang.Area, result.Overhang.LargestArea)
	fmt.Fprintf(out, "  Overhang edges: %d, points: %d\n", result.Overhang.Edges, result.Overhang.Points)
	return nil
}
