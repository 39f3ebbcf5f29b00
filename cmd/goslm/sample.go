package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/stl"
)

// samples are small test parts, all sitting on the platform
var samples = map[string]func() *stl.Model{
	"cube": func() *stl.Model {
		return stl.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(10, 10, 10))
	},
	"tube": func() *stl.Model {
		return stl.Tube(geometry.NewVector2(0, 0), 5, 2, 0, 8, 64)
	},
	"bridge": func() *stl.Model {
		return stl.Profile(geometry.Polygon{
			geometry.NewVector2(0, 0),
			geometry.NewVector2(3, 0),
			geometry.NewVector2(3, 6),
			geometry.NewVector2(12, 6),
			geometry.NewVector2(12, 0),
			geometry.NewVector2(15, 0),
			geometry.NewVector2(15, 8),
			geometry.NewVector2(0, 8),
		}, 0, 5)
	},
	"cantilever": func() *stl.Model {
		return stl.Profile(geometry.Polygon{
			geometry.NewVector2(0, 0),
			geometry.NewVector2(4, 0),
			geometry.NewVector2(4, 6),
			geometry.NewVector2(14, 6),
			geometry.NewVector2(14, 8),
			geometry.NewVector2(0, 8),
		}, 0, 6)
	},
}

var sampleOutput string

var sampleCmd = &cobra.Command{
	Use:       "sample [shape]",
	Short:     "Write a sample part as binary STL",
	Long:      "Write one of the built-in test parts (" + sampleNames() + ") as binary STL.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: sortedSamples(),
	RunE:      runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "", "Output STL file (default: <shape>.stl)")
}

func sortedSamples() []string {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sampleNames() string {
	out := ""
	for i, name := range sortedSamples() {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}

func runSample(cmd *cobra.Command, args []string) error {
	shape, ok := samples[args[0]]
	if !ok {
		return fmt.Errorf("unknown sample %q (available: %s)", args[0], sampleNames())
	}
	path := sampleOutput
	if path == "" {
		path = args[0] + ".stl"
	}
	model := shape()
	model.Name = args[0]
	if err := stl.Save(path, model); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d triangles)\n", path, model.TriangleCount())
	return nil
}
