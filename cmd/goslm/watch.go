package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/goslm/internal/logger"
	"github.com/philipparndt/goslm/pkg/pipeline"
	"github.com/philipparndt/goslm/pkg/watcher"
)

var (
	watchOutput   string
	watchDebounce time.Duration
	watchFlags    buildFlags
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Slice again whenever the STL file changes",
	Long: `Slice the part once and then every time the file is written. Unchanged
layers are taken from an in-memory cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "layers.json", "Output JSON file")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Wait this long after the last write")
	watchFlags.register(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	watchFlags.apply(cmd)
	path := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	capacity := cfg.Build.CacheLayers
	if capacity <= 0 {
		capacity = 256
	}
	memo := pipeline.NewMemo(capacity)

	// runs are serialised; a change during a run starts the next one after it
	var mu sync.Mutex
	rebuild := func() {
		mu.Lock()
		defer mu.Unlock()

		start := time.Now()
		res, err := build(ctx, path, memo)
		if err != nil {
			logger.Error("build failed", zap.String("file", path), zap.Error(err))
			return
		}
		if err := writeResult(res, watchOutput); err != nil {
			logger.Error("write failed", zap.String("file", watchOutput), zap.Error(err))
			return
		}
		stats := memo.Stats()
		logger.Info("layers written",
			zap.String("output", watchOutput),
			zap.Int("layers", len(res.Layers)),
			zap.Int("failed", len(res.Failures)),
			zap.Uint64("cached", stats.Hits),
			zap.Duration("elapsed", time.Since(start)))
	}

	fw, err := watcher.NewFileWatcher(watchDebounce, logger.Log)
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Watch([]string{path}, func(string) { rebuild() }); err != nil {
		return err
	}
	fw.Start(ctx)

	rebuild()
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s, press Ctrl+C to stop\n", path)
	<-ctx.Done()
	return nil
}
