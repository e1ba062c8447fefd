package datastores

import (
	"io"
	"os"
	"path/filepath"

	"github.com/DeveloperOl/lespas/common/rcontext"
	"github.com/dustin/go-humanize"
)

// Persist writes data to filePath through a temporary file in the same
// folder, so readers never see a partial file.
func Persist(ctx rcontext.RequestContext, filePath string, data io.Reader) error {
	targetDir := filepath.Dir(filePath)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}
	file, err := os.CreateTemp(targetDir, ".persist-*")
	if err != nil {
		return err
	}
	tempName := file.Name()

	written, err := io.Copy(file, data)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tempName)
		return err
	}
	if err = file.Close(); err != nil {
		_ = os.Remove(tempName)
		return err
	}
	if err = os.Rename(tempName, filePath); err != nil {
		_ = os.Remove(tempName)
		return err
	}
	ctx.Log.Debugf("Persisted %s to %s", humanize.Bytes(uint64(written)), filePath)
	return nil
}
