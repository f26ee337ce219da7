package app

import (
	"os"
	"path/filepath"
)

// Paths holds the resolved filesystem paths of a .tagger/ working directory.
type Paths struct {
	Root   string // .tagger/
	DB     string // .tagger/tagger.db
	Config string // .tagger/config.yaml

	LogDir    string // .tagger/log/
	DaemonLog string // .tagger/log/daemon.log

	RunDir   string // .tagger/run/
	PIDFile  string // .tagger/run/daemon.pid
	PortFile string // .tagger/run/http.port
}

// NewPaths constructs all resolved paths from a working directory.
func NewPaths(workDir string) *Paths {
	root := filepath.Join(workDir, ".tagger")
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "tagger.db"),
		Config: filepath.Join(root, "config.yaml"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		PortFile: filepath.Join(root, "run", "http.port"),
	}
}

// EnsureDirs creates all subdirectories under .tagger/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files. Called on clean daemon
// shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
