package errcache

import (
	"time"

	"github.com/DeveloperOl/lespas/common/config"
)

// PreviewErrors holds server preview URLs that failed recently. The fetch
// pipeline goes straight to the full object for those.
var PreviewErrors *ErrCache

func Init() {
	PreviewErrors = NewErrCache(previewWindow(config.Get().Fetch))
}

func AdjustSize() {
	PreviewErrors.Resize(previewWindow(config.Get().Fetch))
}

func previewWindow(c config.FetchConfig) time.Duration {
	minutes := c.PreviewFailureMinutes
	if minutes <= 0 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}
