package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goslm/pkg/pipeline"
)

var (
	sliceOutput string
	sliceFlags  buildFlags
)

var sliceCmd = &cobra.Command{
	Use:   "slice [file]",
	Short: "Slice an STL file into layers of scan vectors",
	Long: `Slice the part, generate contour, hatch and support vectors for every layer
and write them as JSON. Failing layers are reported and left out unless
--fail-fast is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSlice,
}

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().StringVarP(&sliceOutput, "output", "o", "-", "Output JSON file, - for stdout")
	sliceFlags.register(sliceCmd)
}

func runSlice(cmd *cobra.Command, args []string) error {
	sliceFlags.apply(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := build(ctx, args[0], nil)
	if err != nil {
		return err
	}
	if err := writeResult(res, sliceOutput); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), res)
	return nil
}

// writeResult writes the layer document to path or stdout
func writeResult(res *pipeline.Result, path string) error {
	if path == "-" || path == "" {
		return res.Document().Write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := res.Document().Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Layers: %d (%d with vectors, %d empty, %d failed)\n",
		len(res.Heights),
		res.Count(pipeline.OutcomeOK),
		res.Count(pipeline.OutcomeEmpty),
		res.Count(pipeline.OutcomeFailed))

	length, exposure := 0.0, 0.0
	for _, l := range res.Layers {
		length += l.Metadata.TotalLength
		exposure += l.Metadata.ExposureTime
	}
	fmt.Fprintf(w, "Scan length: %.1f mm\n", length)
	fmt.Fprintf(w, "Exposure time: %.1f s\n", exposure)
	if res.Support != nil {
		fmt.Fprintf(w, "Support volumes: %d\n", len(res.Support.Volumes))
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  %v\n", f)
	}
}
