package upload

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a uniquely named temporary directory scoped to one request.
// Every stored file lives under it, and Remove tears the whole tree down
// when request handling finishes, whether it succeeded or not.
type Workspace struct {
	Dir string
}

func NewWorkspace(baseDir string) (*Workspace, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(baseDir, "blend_")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Path resolves name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}
