package main

import (
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/common/logging"
	"github.com/DeveloperOl/lespas/common/runtime"
	"github.com/DeveloperOl/lespas/common/version"
	"github.com/DeveloperOl/lespas/errcache"
	"github.com/DeveloperOl/lespas/gallery"
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/pool"
	"github.com/DeveloperOl/lespas/tasks"
	"github.com/DeveloperOl/lespas/thumbnailing/u"
	"github.com/DeveloperOl/lespas/types"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

const slot = tasks.Slot("cli")

func main() {
	configPath := flag.String("config", "lespas.yaml", "The path to the configuration")
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	id := flag.String("id", "", "The media item id")
	name := flag.String("name", "", "The file name of the media item")
	remotePath := flag.String("remote", "", "The album folder on the server, empty when the item was never uploaded")
	localPath := flag.String("local", "", "The path of the device copy, defaults to the file name below the local root")
	mimeType := flag.String("mime", "image/jpeg", "The content type of the media item")
	width := flag.Int("width", 0, "The width of the original, 0 when unknown")
	height := flag.Int("height", 0, "The height of the original, 0 when unknown")
	orientation := flag.Int("orientation", 0, "Clockwise rotation of the original: 0, 90, 180 or 270")
	origin := flag.String("origin", "album", "One of 'album', 'camera_roll' or 'remote_album'")
	kindName := flag.String("kind", "grid", "The artifact to fetch: grid, full, cover, small_cover, video, in_map or empty_roll_cover")
	baseline := flag.Int("baseline", 0, "The crop baseline for covers, -1 shows the whole image")
	refresh := flag.Bool("refresh", false, "Bypass every cache and ask the server again")
	markOnly := flag.Bool("mark", false, "Only mark the item as changed on the server and exit")
	outFile := flag.String("o", "", "Where to write the artifact as PNG")
	flag.Parse()

	if *versionFlag {
		version.Print(false)
		return // exit 0
	}

	// Override config path with config for Docker users
	configEnv := os.Getenv("LESPAS_CONFIG")
	if configEnv != "" {
		configPath = &configEnv
	}
	config.Path = *configPath

	runtime.InitSentry()
	defer sentry.Flush(2 * time.Second)
	defer sentry.Recover()

	err := logging.Setup(config.Get().General, logrus.Fields{"process": "gallery_fetch"})
	if err != nil {
		panic(err)
	}

	if *id == "" {
		logrus.Fatal("No media id specified")
	}
	parsedOrigin, known := types.ParseOrigin(*origin)
	if !known {
		logrus.Fatal("Unknown origin: ", *origin)
	}
	kind, err := types.ParseKind(*kindName, *baseline)
	if err != nil {
		logrus.Fatal(err)
	}
	if *outFile == "" && !*markOnly {
		logrus.Fatal("No output file specified")
	}

	logrus.Info("Starting up...")
	runtime.RunStartupSequence()

	logrus.Info("Starting config watcher...")
	watcher := config.Watch()
	defer watcher.Close()

	metrics.Init()
	defer metrics.Stop()

	layer, err := gallery.New(gallery.Options{
		Queue:         pool.FetchQueue,
		PreviewErrors: errcache.PreviewErrors,
		OnPreview: func(s tasks.Slot, a *types.Artifact) {
			logrus.Info("Showing cached thumbnail while the full image loads")
		},
	})
	if err != nil {
		logrus.Fatal(err)
	}
	defer pool.Drain()
	defer layer.Shutdown()

	if *markOnly {
		if err = layer.MarkForRefresh(*id); err != nil {
			logrus.Fatal(err)
		}
		logrus.Info("Marked ", *id, " for refresh")
		return
	}

	ref := types.MediaReference{
		Id:          *id,
		Name:        *name,
		RemotePath:  *remotePath,
		LocalPath:   *localPath,
		Width:       *width,
		Height:      *height,
		Orientation: *orientation,
		MimeType:    *mimeType,
		Origin:      parsedOrigin,
	}

	done := make(chan *types.Artifact, 1)
	started := time.Now()
	logrus.WithFields(logrus.Fields{
		"media": ref.Id,
		"kind":  types.EffectiveKind(ref, kind).String(),
	}).Info("Fetching")
	layer.Fetch(slot, ref, kind, *refresh, func(a *types.Artifact) {
		done <- a
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	var a *types.Artifact
	select {
	case a = <-done:
	case <-stop:
		logrus.Warn("Stop signal received, cancelling")
		layer.Cancel(slot)
		return
	}

	if a == nil {
		logrus.Warn("Nothing could be loaded, writing the placeholder")
		a = layer.Placeholder()
	}
	logrus.WithFields(logrus.Fields{
		"animated": a.Animated(),
		"frames":   len(a.Frames),
		"took":     time.Since(started).String(),
	}).Info("Writing artifact")

	f, err := os.Create(*outFile)
	if err != nil {
		logrus.Fatal(err)
	}
	defer f.Close()
	if err = u.EncodePng(f, a.Image()); err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("Done!")
}
