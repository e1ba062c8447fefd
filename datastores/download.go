package datastores

import (
	"io"
	"os"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/common/rcontext"
)

// Open opens a local file for reading. A missing file is common.ErrNotFound.
func Open(ctx rcontext.RequestContext, filePath string) (io.ReadSeekCloser, error) {
	if ctx.Cancelled() {
		return nil, common.ErrCancelled
	}
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func Exists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}
