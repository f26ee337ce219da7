package app

import (
	"context"
	"log/slog"
)

// onSourceChanged handles a debounced change of a dictionary source file.
// It rebuilds the whole dictionary; a failed rebuild keeps the previous one
// serving.
func (a *App) onSourceChanged(absPath string) {
	a.log.Info("dictionary source changed", slog.String("path", absPath))

	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	stats, err := a.Rebuild(ctx)
	if err != nil {
		a.log.Error("rebuild failed, keeping previous dictionary",
			slog.String("path", absPath),
			slog.String("error", err.Error()))
		return
	}
	a.log.Info("dictionary rebuilt",
		slog.Int("records", stats.Records),
		slog.Int("phrases", stats.Phrases),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("took", stats.Duration))
}
