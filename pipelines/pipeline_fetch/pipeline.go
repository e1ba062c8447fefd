package pipeline_fetch

import (
	"context"
	"image"
	"io"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/common/rcontext"
	"github.com/DeveloperOl/lespas/errcache"
	"github.com/DeveloperOl/lespas/internal_cache"
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/DeveloperOl/lespas/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Codec interface {
	Probe(b []byte, declared string) (string, int, int, error)
	DecodeSampled(r io.Reader, declared string, sample int) (image.Image, error)
	DecodeRegion(r io.Reader, declared string, region image.Rectangle, sample int) (image.Image, error)
	DecodeAnimated(r io.Reader, declared string) (*types.Artifact, error)
	Orientation(r io.Reader) (int, error)
}

type FrameExtractor interface {
	FromFile(ctx context.Context, path string) (image.Image, error)
	FromSource(ctx context.Context, src io.ReaderAt, size int64) (image.Image, error)
}

// PlatformThumbnails serves media indexed by the platform media store.
type PlatformThumbnails interface {
	Thumbnail(ctx context.Context, ref types.MediaReference, kind types.ArtifactKind) (image.Image, error)
}

type RefreshFlags interface {
	Clear(mediaId string)
}

type Dependencies struct {
	Transport transport.RangeTransport
	Endpoints transport.Endpoints
	Cache     internal_cache.ArtifactStore
	Codec     Codec
	Frames    FrameExtractor

	// Optional
	Platform      PlatformThumbnails
	Refresh       RefreshFlags
	PreviewErrors *errcache.ErrCache
}

type Pipeline struct {
	deps Dependencies

	// the frame extractor takes one video at a time
	frameLock *semaphore.Weighted
}

func New(deps Dependencies) *Pipeline {
	if deps.Cache == nil {
		deps.Cache = internal_cache.NewNoopCache()
	}
	return &Pipeline{
		deps:      deps,
		frameLock: semaphore.NewWeighted(1),
	}
}

// Execute resolves one artifact. A nil artifact with a nil error means no
// tier could produce anything; the only error returned is cancellation.
func (p *Pipeline) Execute(ctx rcontext.RequestContext, calls transport.CallRegistry, ref types.MediaReference, kind types.ArtifactKind, forceRefresh bool) (*types.Artifact, error) {
	if calls == nil {
		calls = transport.NoopRegistry
	}
	f := &fetch{
		ctx:          ctx,
		calls:        calls,
		ref:          ref,
		kind:         types.EffectiveKind(ref, kind),
		key:          types.CacheKey(ref, kind),
		forceRefresh: forceRefresh,
	}
	if f.kind.IsCover() && f.kind.Baseline == types.SpecialCoverBaseline {
		// animated covers are shown whole
		f.kind = types.Full()
	}
	f.ctx = ctx.LogWithFields(logrus.Fields{
		"media": ref.Id,
		"kind":  f.kind.String(),
	})

	for _, t := range p.tiersFor(f) {
		if f.ctx.Cancelled() {
			return nil, common.ErrCancelled
		}
		res := t.fn(f)
		switch res.Status {
		case StatusOk:
			metrics.TierOutcomes.With(prometheus.Labels{"kind": f.kind.String(), "tier": t.name, "outcome": "ok"}).Inc()
			f.ctx.Log.Debugf("Resolved by tier %s", t.name)
			if t.clearsRefresh && f.forceRefresh && p.deps.Refresh != nil {
				p.deps.Refresh.Clear(ref.Id)
			}
			if t.name != tierCache && isCacheable(f.kind) {
				p.deps.Cache.Put(f.key, res.Artifact)
			}
			return res.Artifact, nil
		case StatusSkip:
			metrics.TierOutcomes.With(prometheus.Labels{"kind": f.kind.String(), "tier": t.name, "outcome": "skip"}).Inc()
		case StatusFail:
			if common.IsCancelled(res.Err) || f.ctx.Cancelled() {
				return nil, common.ErrCancelled
			}
			metrics.TierOutcomes.With(prometheus.Labels{"kind": f.kind.String(), "tier": t.name, "outcome": "fail"}).Inc()
			f.ctx.Log.Debugf("Tier %s failed: %v", t.name, res.Err)
		}
	}
	return nil, nil
}

// Full resolutions are never cached to bound memory.
func isCacheable(kind types.ArtifactKind) bool {
	return kind.Type != types.KindFull
}

// fetch is the state of one Execute call, shared by its tiers.
type fetch struct {
	ctx          rcontext.RequestContext
	calls        transport.CallRegistry
	ref          types.MediaReference
	kind         types.ArtifactKind
	key          string
	forceRefresh bool
}
