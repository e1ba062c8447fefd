package runtime

import (
	"os/exec"

	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/common/logging"
	"github.com/DeveloperOl/lespas/common/version"
	"github.com/DeveloperOl/lespas/errcache"
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/pool"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

func InitSentry() {
	c := config.Get().Sentry
	if !c.Enabled {
		return
	}
	logrus.Info("Setting up Sentry for debugging...")
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.Dsn,
		Environment: c.Environment,
		Debug:       c.Debug,
		Release:     version.Release(),
	})
	if err != nil {
		panic(err)
	}
}

func RunStartupSequence() {
	version.Print(true)
	CheckFrameTool()

	logrus.Info("Preparing fetch queue...")
	pool.Init()
	errcache.Init()

	setupReloads()
}

// CheckFrameTool warns when video frames cannot be extracted. Videos then
// resolve to the placeholder.
func CheckFrameTool() {
	p := config.Get().Frames.FfmpegPath
	if p == "" {
		p = "ffmpeg"
	}
	if resolved, err := exec.LookPath(p); err != nil {
		logrus.Warn("ffmpeg not found, video thumbnails are unavailable: ", err)
	} else {
		logrus.Debug("Using ffmpeg at ", resolved)
	}
}

func setupReloads() {
	config.OnReload(func(previous *config.LayerConfig, current *config.LayerConfig) {
		if previous.Fetch.NumWorkers != current.Fetch.NumWorkers {
			logrus.Infof("Resizing fetch queue to %d workers", current.Fetch.NumWorkers)
			pool.AdjustSize()
		}
		if previous.Fetch.PreviewFailureMinutes != current.Fetch.PreviewFailureMinutes {
			errcache.AdjustSize()
		}
		if previous.General.LogLevel != current.General.LogLevel {
			if err := logging.SetLevel(current.General.LogLevel); err != nil {
				logrus.Warn("Ignoring unknown log level: ", current.General.LogLevel)
			}
		}
		if previous.Metrics != current.Metrics {
			metrics.Reload()
		}
	})
}
