package pipeline_fetch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/common/rcontext"
	"github.com/DeveloperOl/lespas/datastores"
	"github.com/DeveloperOl/lespas/errcache"
	"github.com/DeveloperOl/lespas/internal_cache"
	"github.com/DeveloperOl/lespas/test/test_internals"
	"github.com/DeveloperOl/lespas/thumbnailing"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/DeveloperOl/lespas/types"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeFrames struct {
	lock      sync.Mutex
	calls     int
	lastSize  int64
	lastBytes []byte
	lastPath  string
	frame     image.Image

	// delay holds FromFile open so overlapping extractions would show
	delay  time.Duration
	active int
	peak   int
}

func (f *fakeFrames) FromFile(ctx context.Context, path string) (image.Image, error) {
	f.lock.Lock()
	f.calls++
	f.lastPath = path
	f.active++
	f.peak = max(f.peak, f.active)
	f.lock.Unlock()

	time.Sleep(f.delay)

	f.lock.Lock()
	defer f.lock.Unlock()
	f.active--
	return f.frame, nil
}

func (f *fakeFrames) FromSource(ctx context.Context, src io.ReaderAt, size int64) (image.Image, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls++
	f.lastSize = size
	b, err := io.ReadAll(io.NewSectionReader(src, 0, size))
	if err != nil {
		return nil, err
	}
	f.lastBytes = b
	return f.frame, nil
}

type fakePlatform struct {
	img image.Image
}

func (p *fakePlatform) Thumbnail(ctx context.Context, ref types.MediaReference, kind types.ArtifactKind) (image.Image, error) {
	if p.img == nil {
		return nil, common.ErrNotFound
	}
	return p.img, nil
}

type fakeRefresh struct {
	cleared []string
}

func (r *fakeRefresh) Clear(mediaId string) {
	r.cleared = append(r.cleared, mediaId)
}

// cancellingRegistry aborts every registered call once ctx is done.
type cancellingRegistry struct {
	ctx   context.Context
	lock  sync.Mutex
	calls []transport.Call
}

func (r *cancellingRegistry) RegisterCall(call transport.Call) {
	r.lock.Lock()
	r.calls = append(r.calls, call)
	r.lock.Unlock()
	context.AfterFunc(r.ctx, call.Cancel)
}

type PipelineSuite struct {
	suite.Suite
	transport *test_internals.FakeTransport
	cache     *internal_cache.ArtifactCache
	frames    *fakeFrames
	platform  *fakePlatform
	refresh   *fakeRefresh
	previews  *errcache.ErrCache
	endpoints transport.Endpoints
	cfg       config.LayerConfig
	pipeline  *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.transport = test_internals.NewFakeTransport()
	s.cache = internal_cache.NewArtifactCache(1 << 30)
	s.frames = &fakeFrames{frame: test_internals.MakeTestImage(32, 18)}
	s.platform = &fakePlatform{}
	s.refresh = &fakeRefresh{}
	s.previews = errcache.NewErrCache(time.Minute)
	s.endpoints = transport.Endpoints{
		BaseUrl:         "https://cloud.test",
		DavEndpoint:     "/remote.php/dav/files",
		Username:        "alice",
		PreviewEndpoint: "/index.php/core/preview?x=1024&y=1024&a=true&fileId=",
	}

	s.cfg = config.NewDefaultConfig()
	s.cfg.Storage.LocalRoot = filepath.Join(s.T().TempDir(), "local")
	s.cfg.Storage.CacheDir = filepath.Join(s.T().TempDir(), "cache")

	s.pipeline = New(Dependencies{
		Transport:     s.transport,
		Endpoints:     s.endpoints,
		Cache:         s.cache,
		Codec:         thumbnailing.NewCodec(25_000_000),
		Frames:        s.frames,
		Platform:      s.platform,
		Refresh:       s.refresh,
		PreviewErrors: s.previews,
	})
}

func (s *PipelineSuite) TearDownTest() {
	s.cache.Close()
}

func (s *PipelineSuite) context() rcontext.RequestContext {
	return rcontext.Wrap(context.Background(), logrus.WithField("test", s.T().Name()), s.cfg)
}

func (s *PipelineSuite) execute(ref types.MediaReference, kind types.ArtifactKind, forceRefresh bool) *types.Artifact {
	a, err := s.pipeline.Execute(s.context(), nil, ref, kind, forceRefresh)
	s.Require().NoError(err)
	return a
}

func (s *PipelineSuite) encode(img image.Image) []byte {
	buf := &bytes.Buffer{}
	s.Require().NoError(imaging.Encode(buf, img, imaging.PNG))
	return buf.Bytes()
}

func (s *PipelineSuite) writeLocal(name string, b []byte) {
	p := filepath.Join(s.cfg.Storage.LocalRoot, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(p), 0755))
	s.Require().NoError(os.WriteFile(p, b, 0644))
}

func remoteRef(id string) types.MediaReference {
	return types.MediaReference{
		Id:         id,
		Name:       id + ".png",
		RemotePath: "lespas/Album",
		Width:      40,
		Height:     20,
		MimeType:   "image/png",
		Origin:     types.OriginRemoteAlbum,
	}
}

func assertSize(t *testing.T, a *types.Artifact, w int, h int) {
	require.NotNil(t, a)
	require.NotNil(t, a.Image())
	assert.Equal(t, w, a.Image().Bounds().Dx(), "width")
	assert.Equal(t, h, a.Image().Bounds().Dy(), "height")
}

func (s *PipelineSuite) TestGridUsesServerPreviewAndCaches() {
	ref := remoteRef("1")
	s.transport.Put(s.endpoints.PreviewUrl(ref), s.encode(test_internals.MakeTestImage(64, 32)))

	a := s.execute(ref, types.Grid(), false)
	assertSize(s.T(), a, 32, 16)
	s.Equal(1, s.transport.GetCount())

	cached, found := s.cache.Get("1_view")
	s.True(found)
	s.Same(a, cached)

	again := s.execute(ref, types.Grid(), false)
	s.Same(a, again)
	s.Equal(1, s.transport.GetCount())
}

func (s *PipelineSuite) TestInMapPreviewIsNotSampled() {
	ref := remoteRef("1")
	s.transport.Put(s.endpoints.PreviewUrl(ref), s.encode(test_internals.MakeTestImage(64, 32)))

	a := s.execute(ref, types.InMap(), false)
	assertSize(s.T(), a, 64, 32)
	_, found := s.cache.Get("1_map")
	s.True(found)
}

func (s *PipelineSuite) TestGridFallsBackToObjectWhenPreviewMissing() {
	ref := remoteRef("2")
	ref.Orientation = 90
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(40, 20)))

	a := s.execute(ref, types.Grid(), false)
	// sampled by 2 then turned upright
	assertSize(s.T(), a, 10, 20)
	s.Error(s.previews.Recent(s.endpoints.PreviewUrl(ref)))

	// the failing preview is not asked for again while remembered
	s.cache.Reset()
	before := len(s.transport.Requests())
	s.execute(ref, types.Grid(), false)
	requests := s.transport.Requests()[before:]
	s.Require().Len(requests, 1)
	s.Equal(s.endpoints.ObjectUrl(ref), requests[0].Url)
}

func (s *PipelineSuite) TestForceRefreshBypassesCacheAndClearsFlag() {
	ref := remoteRef("3")
	s.transport.Put(s.endpoints.PreviewUrl(ref), s.encode(test_internals.MakeTestImage(64, 32)))
	stale := types.NewStill(test_internals.MakeTestImage(2, 2), "image/png")
	s.cache.Put(types.CacheKey(ref, types.Grid()), stale)

	a := s.execute(ref, types.Grid(), true)
	assertSize(s.T(), a, 32, 16)
	s.NotSame(stale, a)

	requests := s.transport.Requests()
	s.Require().Len(requests, 1)
	s.Equal(transport.CacheForceNetwork, requests[0].Directive)
	s.Equal([]string{"3"}, s.refresh.cleared)

	cached, _ := s.cache.Get("3_view")
	s.Same(a, cached)
}

func (s *PipelineSuite) TestForceRefreshOnFullDoesNotClearFlag() {
	ref := remoteRef("4")
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(40, 20)))

	a := s.execute(ref, types.Full(), true)
	assertSize(s.T(), a, 40, 20)
	s.Empty(s.refresh.cleared)
}

func (s *PipelineSuite) TestLocalGridFallsBackToRemote() {
	ref := remoteRef("5")
	ref.NotYetUploaded = true
	ref.Origin = types.OriginAlbum
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(40, 20)))

	a := s.execute(ref, types.Grid(), false)
	assertSize(s.T(), a, 20, 10)

	s.cache.Reset()
	s.writeLocal(ref.Name, s.encode(test_internals.MakeTestImage(80, 40)))
	before := s.transport.GetCount()
	a = s.execute(ref, types.Grid(), false)
	assertSize(s.T(), a, 40, 20)
	s.Equal(before, s.transport.GetCount())
}

func (s *PipelineSuite) TestForcedLocalGridFallbackIsNotForced() {
	ref := remoteRef("5f")
	ref.NotYetUploaded = true
	ref.Origin = types.OriginAlbum
	s.transport.Put(s.endpoints.PreviewUrl(ref), s.encode(test_internals.MakeTestImage(64, 32)))

	a := s.execute(ref, types.Grid(), true)
	assertSize(s.T(), a, 32, 16)

	requests := s.transport.Requests()
	s.Require().Len(requests, 1)
	s.Equal(s.endpoints.PreviewUrl(ref), requests[0].Url)
	s.Equal(transport.CacheDefault, requests[0].Directive)
	s.Empty(s.refresh.cleared)
}

func (s *PipelineSuite) TestCameraRollGridPrefersPlatform() {
	ref := types.MediaReference{Id: "cr1", Name: "IMG_1.png", MimeType: "image/png", Width: 40, Height: 20, Origin: types.OriginCameraRoll, Orientation: 90}
	s.writeLocal(ref.Name, s.encode(test_internals.MakeTestImage(40, 20)))

	// no platform thumbnail, the file is decoded and turned upright
	a := s.execute(ref, types.Grid(), false)
	assertSize(s.T(), a, 10, 20)

	s.cache.Reset()
	s.platform.img = test_internals.MakeTestImage(12, 12)
	a = s.execute(ref, types.Grid(), false)
	assertSize(s.T(), a, 12, 12)
}

func (s *PipelineSuite) TestFullRemoteIsRotatedAndNotCached() {
	ref := remoteRef("6")
	ref.Orientation = 90
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(40, 20)))

	a := s.execute(ref, types.Full(), false)
	assertSize(s.T(), a, 20, 40)
	s.Equal(0, s.cache.Len())
}

func (s *PipelineSuite) TestFullLocalIsNotRotated() {
	ref := remoteRef("7")
	ref.Orientation = 90
	s.writeLocal(ref.Name, s.encode(test_internals.MakeTestImage(40, 20)))

	a := s.execute(ref, types.Full(), false)
	assertSize(s.T(), a, 40, 20)
	s.Equal(0, s.transport.GetCount())
}

func (s *PipelineSuite) TestFullWithoutDimensionsIsSampled() {
	ref := remoteRef("8")
	ref.Width = 0
	ref.Height = 0
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(40, 20)))

	a := s.execute(ref, types.Full(), false)
	assertSize(s.T(), a, 20, 10)
}

func makeGif(t *testing.T, frames int) []byte {
	palette := color.Palette{color.Black, color.White}
	g := &gif.GIF{LoopCount: 2}
	for n := 0; n < frames; n++ {
		frame := image.NewPaletted(image.Rect(0, 0, 10, 10), palette)
		for x := 0; x < 10; x++ {
			for y := 0; y < 10; y++ {
				frame.SetColorIndex(x, y, uint8(n%2))
			}
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 5)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	buf := &bytes.Buffer{}
	require.NoError(t, gif.EncodeAll(buf, g))
	return buf.Bytes()
}

func (s *PipelineSuite) TestFullAnimated() {
	ref := remoteRef("9")
	ref.MimeType = "image/agif"
	s.transport.Put(s.endpoints.ObjectUrl(ref), makeGif(s.T(), 3))

	a := s.execute(ref, types.Full(), false)
	s.Require().NotNil(a)
	s.True(a.Animated())
	s.Len(a.Frames, 3)
	s.Equal(0, a.LoopCount)

	s.cfg.Fetch.AutoReplayAnimations = false
	a = s.execute(ref, types.Full(), false)
	s.Require().NotNil(a)
	s.Equal(3, a.LoopCount)
}

func (s *PipelineSuite) TestPlainGifOutsideCameraRollIsStill() {
	ref := remoteRef("10")
	ref.MimeType = "image/gif"
	s.transport.Put(s.endpoints.ObjectUrl(ref), makeGif(s.T(), 3))

	a := s.execute(ref, types.Full(), false)
	s.Require().NotNil(a)
	s.False(a.Animated())
}

func (s *PipelineSuite) TestAnimatedCoverResolvesAsFull() {
	ref := remoteRef("11")
	ref.MimeType = "image/agif"
	s.transport.Put(s.endpoints.ObjectUrl(ref), makeGif(s.T(), 2))

	a := s.execute(ref, types.Cover(types.SpecialCoverBaseline), false)
	s.Require().NotNil(a)
	s.True(a.Animated())
	s.Equal(0, s.cache.Len())
}

func (s *PipelineSuite) TestCoverCropsBand() {
	ref := remoteRef("12")
	ref.Width = 210
	ref.Height = 300
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(210, 300)))

	a := s.execute(ref, types.Cover(10), false)
	assertSize(s.T(), a, 209, 90)
	_, found := s.cache.Get("12_cover-10")
	s.True(found)

	a = s.execute(ref, types.SmallCover(10), false)
	assertSize(s.T(), a, 104, 45)
	_, found = s.cache.Get("12_smallcover-10")
	s.True(found)
}

func (s *PipelineSuite) TestCoverOfUnsettledItemIgnoresOrientation() {
	ref := remoteRef("13")
	ref.Width = 210
	ref.Height = 300
	ref.Orientation = 90
	ref.NotYetUploaded = true
	ref.Origin = types.OriginAlbum
	s.writeLocal(ref.Name, s.encode(test_internals.MakeTestImage(210, 300)))

	a := s.execute(ref, types.Cover(0), false)
	assertSize(s.T(), a, 209, 90)
}

func (s *PipelineSuite) TestCoverProbesMissingDimensions() {
	ref := remoteRef("14")
	ref.Width = 0
	ref.Height = 0
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(210, 300)))

	a := s.execute(ref, types.Cover(0), false)
	assertSize(s.T(), a, 209, 90)
}

func (s *PipelineSuite) TestRemoteVideoExtractsAndPersistsFrame() {
	ref := remoteRef("15")
	ref.Name = "clip.mp4"
	ref.MimeType = "video/mp4"
	video := test_internals.PatternBytes(500_000)
	s.transport.Put(s.endpoints.ObjectUrl(ref), video)

	a := s.execute(ref, types.Grid(), false)
	assertSize(s.T(), a, 32, 18)
	s.Equal(1, s.frames.calls)
	s.Equal(int64(len(video)), s.frames.lastSize)
	s.Equal(video, s.frames.lastBytes)

	cached, found := s.cache.Get("15_video")
	s.True(found)
	s.Same(a, cached)

	p, err := datastores.VideoThumbnailPath(s.cfg.Storage, ref)
	s.Require().NoError(err)
	s.True(datastores.Exists(p))

	// second time round the disk copy answers, and goes back in memory
	s.cache.Reset()
	a = s.execute(ref, types.Full(), false)
	assertSize(s.T(), a, 32, 18)
	s.Equal(1, s.frames.calls)
	s.Equal(1, s.cache.Len())
}

func (s *PipelineSuite) TestVideoServedFromMemory() {
	ref := types.MediaReference{Id: "18", Name: "clip.mp4", MimeType: "video/mp4"}
	s.writeLocal(ref.Name, []byte("not really a video"))

	first := s.execute(ref, types.Video(), false)
	s.Require().NotNil(first)
	second := s.execute(ref, types.Grid(), false)
	s.Same(first, second)
	s.Equal(1, s.frames.calls)

	// a forced refresh reads the disk copy again
	third := s.execute(ref, types.Video(), true)
	s.Require().NotNil(third)
	s.NotSame(first, third)
	s.Equal(1, s.frames.calls)
}

func (s *PipelineSuite) TestCameraRollVideoIsCached() {
	ref := types.MediaReference{Id: "19", MimeType: "video/mp4", Origin: types.OriginCameraRoll}
	s.platform.img = test_internals.MakeTestImage(8, 8)
	a := s.execute(ref, types.Video(), false)
	assertSize(s.T(), a, 8, 8)

	s.platform.img = nil
	s.Same(a, s.execute(ref, types.Video(), false))
}

func (s *PipelineSuite) TestConcurrentVideosExtractOneAtATime() {
	s.frames.delay = 20 * time.Millisecond
	refs := make([]types.MediaReference, 4)
	for i := range refs {
		refs[i] = types.MediaReference{Id: "v" + strconv.Itoa(i), Name: "clip" + strconv.Itoa(i) + ".mp4", MimeType: "video/mp4"}
		s.writeLocal(refs[i].Name, []byte("not really a video"))
	}

	wg := sync.WaitGroup{}
	for _, ref := range refs {
		wg.Add(1)
		go func(ref types.MediaReference) {
			defer wg.Done()
			a, err := s.pipeline.Execute(s.context(), nil, ref, types.Video(), false)
			assert.NoError(s.T(), err)
			assert.NotNil(s.T(), a)
		}(ref)
	}
	wg.Wait()

	s.Equal(len(refs), s.frames.calls)
	s.Equal(1, s.frames.peak)
}

func (s *PipelineSuite) TestLocalVideoUsesFile() {
	ref := types.MediaReference{Id: "16", Name: "clip.mp4", MimeType: "video/mp4"}
	s.writeLocal(ref.Name, []byte("not really a video"))

	a := s.execute(ref, types.Video(), false)
	assertSize(s.T(), a, 32, 18)
	s.Equal(filepath.Join(s.cfg.Storage.LocalRoot, "clip.mp4"), s.frames.lastPath)
	s.Equal(0, s.transport.GetCount()+s.transport.RangeCount())
}

func (s *PipelineSuite) TestCameraRollVideoUsesPlatform() {
	ref := types.MediaReference{Id: "17", MimeType: "video/mp4", Origin: types.OriginCameraRoll}
	s.Nil(s.execute(ref, types.Video(), false))

	s.platform.img = test_internals.MakeTestImage(8, 8)
	a := s.execute(ref, types.Video(), false)
	assertSize(s.T(), a, 8, 8)
	s.Equal(0, s.frames.calls)
}

func (s *PipelineSuite) TestEmptyRollCover() {
	a := s.execute(types.MediaReference{Id: "roll"}, types.EmptyRollCover(), false)
	assertSize(s.T(), a, 1050, 450)
	_, found := s.cache.Get("rollempty")
	s.True(found)
}

func (s *PipelineSuite) TestNothingFoundIsNoArtifact() {
	ref := remoteRef("18")
	s.Nil(s.execute(ref, types.Grid(), false))
	s.Nil(s.execute(ref, types.Full(), false))
	s.Nil(s.execute(ref, types.Cover(0), false))
	s.Equal(0, s.cache.Len())
}

func (s *PipelineSuite) TestUndecodableIsNoArtifact() {
	ref := remoteRef("19")
	s.transport.Put(s.endpoints.ObjectUrl(ref), []byte("definitely not a png"))
	s.Nil(s.execute(ref, types.Full(), false))
}

func (s *PipelineSuite) TestProtocolErrorIsNoArtifact() {
	ref := remoteRef("20")
	s.transport.FailNext(&common.ProtocolError{Url: "x", StatusCode: 500}, &common.ProtocolError{Url: "x", StatusCode: 500})
	s.transport.Put(s.endpoints.ObjectUrl(ref), s.encode(test_internals.MakeTestImage(4, 4)))
	s.Nil(s.execute(ref, types.Grid(), false))
}

func (s *PipelineSuite) TestCancelledBeforeStart() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rctx := rcontext.Wrap(ctx, logrus.WithField("test", s.T().Name()), s.cfg)

	a, err := s.pipeline.Execute(rctx, nil, remoteRef("21"), types.Grid(), false)
	s.Nil(a)
	s.ErrorIs(err, common.ErrCancelled)
	s.Equal(0, s.transport.GetCount())
}

func (s *PipelineSuite) TestCancelAbortsOpenCall() {
	ref := remoteRef("22")
	s.transport.Hold(s.endpoints.PreviewUrl(ref))

	ctx, cancel := context.WithCancel(context.Background())
	registry := &cancellingRegistry{ctx: ctx}
	rctx := rcontext.Wrap(ctx, logrus.WithField("test", s.T().Name()), s.cfg)

	done := make(chan error, 1)
	go func() {
		_, err := s.pipeline.Execute(rctx, registry, ref, types.Grid(), false)
		done <- err
	}()

	s.Eventually(func() bool {
		return len(s.transport.Calls()) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, common.ErrCancelled)
	case <-time.After(2 * time.Second):
		s.Fail("pipeline did not unwind")
	}
	s.True(s.transport.Calls()[0].IsCancelled())
	// the failure was a cancel, the preview is not blamed for it
	s.NoError(s.previews.Recent(s.endpoints.PreviewUrl(ref)))
}
