package gallery

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/common/rcontext"
	"github.com/DeveloperOl/lespas/common/version"
	"github.com/DeveloperOl/lespas/datastores"
	"github.com/DeveloperOl/lespas/errcache"
	"github.com/DeveloperOl/lespas/internal_cache"
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/notifier"
	"github.com/DeveloperOl/lespas/pipelines/pipeline_fetch"
	"github.com/DeveloperOl/lespas/pool"
	"github.com/DeveloperOl/lespas/tasks"
	"github.com/DeveloperOl/lespas/thumbnailing"
	"github.com/DeveloperOl/lespas/thumbnailing/frames"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/DeveloperOl/lespas/types"
	"github.com/dustin/go-humanize"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type FrameExtractor interface {
	pipeline_fetch.FrameExtractor
	Release()
}

// Options wire the layer to its collaborators. Anything left nil is built
// from the configuration.
type Options struct {
	// Config pins the configuration. When nil every fetch reads config.Get(),
	// so live reloads apply.
	Config *config.LayerConfig

	Transport     transport.RangeTransport
	Queue         *pool.Queue
	Cache         internal_cache.ArtifactStore
	Codec         pipeline_fetch.Codec
	Frames        FrameExtractor
	Platform      pipeline_fetch.PlatformThumbnails
	Refresh       *notifier.RefreshStore
	PreviewErrors *errcache.ErrCache

	// Dispatch runs deliveries on the presentation side. Defaults to running
	// them inline on the worker.
	Dispatch func(fn func())
	// OnPreview receives an already cached grid thumbnail while a full
	// resolution fetch for the same slot is under way.
	OnPreview func(slot tasks.Slot, a *types.Artifact)
}

type Layer struct {
	opts      Options
	queue     *pool.Queue
	sup       *tasks.Supervisor
	pipeline  *pipeline_fetch.Pipeline
	cache     internal_cache.ArtifactStore
	frames    FrameExtractor
	refresh   *notifier.RefreshStore
	previews  *errcache.ErrCache
	endpoints transport.Endpoints

	ownsQueue   bool
	ownsRefresh bool
	ownsCache   bool

	placeholderOnce sync.Once
	placeholder     *types.Artifact

	closed atomic.Bool
}

func New(opts Options) (*Layer, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Get()
	}

	l := &Layer{opts: opts, endpoints: transport.EndpointsFromConfig(*cfg)}

	if opts.Queue == nil {
		q, err := pool.NewQueue(cfg.Fetch.NumWorkers, "fetches")
		if err != nil {
			return nil, err
		}
		l.queue = q
		l.ownsQueue = true
	} else {
		l.queue = opts.Queue
	}

	if opts.Transport == nil {
		opts.Transport = transport.NewWebDav(transport.Options{
			Username:   cfg.Server.Username,
			Token:      cfg.Server.Token,
			UserAgent:  userAgent(cfg.Server),
			Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			BackoffAt:  cfg.Server.BackoffAt,
			SelfSigned: cfg.Server.SelfSigned,
		})
	}

	l.cache = opts.Cache
	if l.cache == nil {
		l.cache = internal_cache.New(cfg.Cache)
		l.ownsCache = true
	}
	if opts.Codec == nil {
		opts.Codec = thumbnailing.NewCodec(int64(cfg.Fetch.MaxDecodedPixels))
	}
	l.frames = opts.Frames
	if l.frames == nil {
		l.frames = frames.NewExtractor(cfg.Frames.FfmpegPath, time.Duration(cfg.Frames.AtMillis)*time.Millisecond)
	}
	l.previews = opts.PreviewErrors
	if l.previews == nil {
		l.previews = errcache.NewErrCache(time.Duration(max(cfg.Fetch.PreviewFailureMinutes, 1)) * time.Minute)
	}

	l.refresh = opts.Refresh
	if l.refresh == nil && cfg.Storage.RefreshDbPath != "" {
		store, err := notifier.Open(cfg.Storage.RefreshDbPath)
		if err != nil {
			l.closeOwned()
			return nil, errors.Wrap(err, "error opening refresh flags")
		}
		l.refresh = store
		l.ownsRefresh = true
	}

	deps := pipeline_fetch.Dependencies{
		Transport:     opts.Transport,
		Endpoints:     l.endpoints,
		Cache:         l.cache,
		Codec:         opts.Codec,
		Frames:        l.frames,
		Platform:      opts.Platform,
		PreviewErrors: l.previews,
	}
	if l.refresh != nil {
		deps.Refresh = l.refresh
		// a changed server copy makes every cached rendition stale
		l.refresh.OnMarked(l.Invalidate)
	}
	l.pipeline = pipeline_fetch.New(deps)
	l.sup = tasks.NewSupervisor(l.queue)

	return l, nil
}

func (l *Layer) config() config.LayerConfig {
	if l.opts.Config != nil {
		return *l.opts.Config
	}
	return *config.Get()
}

func (l *Layer) dispatch(fn func()) {
	if l.opts.Dispatch != nil {
		l.opts.Dispatch(fn)
		return
	}
	fn()
}

// Fetch resolves kind for ref in the background and calls onComplete once
// with the artifact, or with nil when nothing could be loaded. A later
// Fetch or Cancel for the same slot suppresses the callback.
func (l *Layer) Fetch(slot tasks.Slot, ref types.MediaReference, kind types.ArtifactKind, forceRefresh bool, onComplete func(a *types.Artifact)) {
	if l.closed.Load() {
		return
	}
	flagged := l.refresh != nil && l.refresh.NeedsRefresh(ref.Id)
	force := forceRefresh || ref.NeedsRefresh || flagged

	if kind.Type == types.KindFull && l.opts.OnPreview != nil && !ref.IsVideo() {
		if thumb, found := l.cache.Get(types.CacheKey(ref, types.Grid())); found {
			l.dispatch(func() {
				l.opts.OnPreview(slot, thumb)
			})
		}
	}

	l.sup.Submit(slot, func(t *tasks.Task) {
		t.DeferDelivery()
		log := logrus.WithFields(logrus.Fields{
			"slot": string(slot),
			"task": t.ID(),
		})
		if flagged {
			log.Debugf("Server copy changed %s, bypassing caches", humanize.Time(l.refresh.MarkedAt(ref.Id)))
		}
		ctx := rcontext.Wrap(t.Context(), log, l.config())

		a, err := l.pipeline.Execute(ctx, t, ref, kind, force)
		if err != nil {
			log.Debug("Fetch ended without delivery: ", err)
			return
		}

		l.dispatch(func() {
			t.Deliver(func() {
				metrics.ArtifactsDelivered.With(prometheus.Labels{
					"kind":        types.EffectiveKind(ref, kind).String(),
					"placeholder": boolLabel(a == nil),
				}).Inc()
				onComplete(a)
			})
		})
	})
}

// Cancel drops the outstanding fetch for slot, if any.
func (l *Layer) Cancel(slot tasks.Slot) {
	l.sup.Release(slot)
}

// Invalidate forgets every cached rendition of a media item, including a
// video frame taken from its server copy.
func (l *Layer) Invalidate(mediaId string) {
	log := logrus.WithField("media", mediaId)
	n := l.cache.RemoveByPrefix(mediaId)
	l.previews.Forget(l.endpoints.PreviewUrl(types.MediaReference{Id: mediaId}))
	if err := datastores.RemoveCachedVideoThumbnail(l.config().Storage, mediaId); err != nil {
		log.Warn("Error removing video thumbnail: ", err)
	}
	log.Debugf("Invalidated %d cached artifacts", n)
}

// MarkForRefresh records that the server copy of a media item changed. The
// next fetch of it bypasses every cache.
func (l *Layer) MarkForRefresh(mediaId string) error {
	if l.refresh == nil {
		return errors.New("no refresh store configured")
	}
	return l.refresh.MarkForRefresh(mediaId)
}

// Placeholder is what presentation shows for a nil artifact.
func (l *Layer) Placeholder() *types.Artifact {
	l.placeholderOnce.Do(func() {
		l.placeholder = &types.Artifact{
			Still:       thumbnailing.Placeholder(thumbnailing.PlaceholderSize),
			ContentType: "image/png",
			Placeholder: true,
		}
	})
	return l.placeholder
}

func (l *Layer) Cache() internal_cache.ArtifactStore {
	return l.cache
}

func (l *Layer) Pending() int {
	return l.sup.Len()
}

// Shutdown cancels everything outstanding and releases what the layer owns.
// It is safe to call more than once.
func (l *Layer) Shutdown() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	logrus.Info("Shutting down media layer")
	l.sup.Close()
	l.frames.Release()
	l.closeOwned()
	l.cache.Reset()
}

func (l *Layer) closeOwned() {
	if l.ownsQueue && l.queue != nil {
		l.queue.Drain()
	}
	if l.ownsCache && l.cache != nil {
		l.cache.Close()
	}
	if l.ownsRefresh && l.refresh != nil {
		if err := l.refresh.Close(); err != nil {
			sentry.CaptureException(err)
			logrus.Error("Error closing refresh flags: ", err)
		}
	}
}

func userAgent(c config.ServerConfig) string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return version.UserAgent()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
