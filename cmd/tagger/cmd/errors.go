package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/corey/tagger/internal/adapters/bbolt"
	"github.com/corey/tagger/internal/config"
)

// isDBLockError reports whether err comes from a store another process holds.
func isDBLockError(err error) bool {
	return errors.Is(err, bbolt.ErrLocked)
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when opening the store fails on the lock. It distinguishes three
// scenarios: daemon running, stale socket, and unknown lock holder.
func diagnoseDBLock(cfg *config.Config) string {
	sock := sockPath(cfg)
	if _, ok := daemonClient(cfg); ok {
		return "dictionary store is locked by the running daemon\n" +
			"  → use the daemon:  tagger tag / tagger build go through it\n" +
			"  → or stop it:      tagger daemon stop"
	}

	if _, err := os.Stat(sock); err == nil {
		return fmt.Sprintf("dictionary store is locked, daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'tagger daemon'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sock)
	}

	return "dictionary store is locked by another process\n" +
		"  → find the process:  ps aux | grep 'tagger'\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}

// explain adds lock diagnostics to err when it is a lock failure.
func explain(cfg *config.Config, err error) error {
	if isDBLockError(err) {
		return fmt.Errorf("%w\n%s", err, diagnoseDBLock(cfg))
	}
	return err
}
