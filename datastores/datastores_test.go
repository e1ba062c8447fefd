package datastores

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/common/rcontext"
	"github.com/DeveloperOl/lespas/test/test_internals"
	"github.com/DeveloperOl/lespas/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeContext(t *testing.T) rcontext.RequestContext {
	cfg := config.NewDefaultConfig()
	cfg.Storage.LocalRoot = filepath.Join(t.TempDir(), "local")
	cfg.Storage.CacheDir = filepath.Join(t.TempDir(), "cache")
	cfg.Fetch.ThumbnailJpegQuality = 90
	return rcontext.Wrap(context.Background(), logrus.WithField("test", t.Name()), cfg)
}

func TestLocateRejectsEscapes(t *testing.T) {
	cfg := config.StorageConfig{LocalRoot: "/data/local", CacheDir: "/data/cache"}

	p, err := Locate(cfg, LocalMediaKind, "album/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/local", "album", "photo.jpg"), p)

	p, err = Locate(cfg, CacheKind, "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/cache", "etc", "passwd"), p)

	_, err = Locate(cfg, CacheKind, "")
	assert.Error(t, err)
}

func TestLocalFile(t *testing.T) {
	cfg := config.StorageConfig{LocalRoot: "/data/local"}

	p, err := LocalFile(cfg, types.MediaReference{Id: "1", Name: "a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/local", "a.jpg"), p)

	p, err = LocalFile(cfg, types.MediaReference{Id: "1", Name: "a.jpg", LocalPath: "/sdcard/DCIM/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "/sdcard/DCIM/a.jpg", p)

	_, err = LocalFile(cfg, types.MediaReference{Id: "1"})
	assert.Error(t, err)
}

func TestPersistThenOpen(t *testing.T) {
	ctx := makeContext(t)
	target := filepath.Join(ctx.Config.Storage.LocalRoot, "nested", "file.bin")
	data := test_internals.PatternBytes(4096)

	require.NoError(t, Persist(ctx, target, bytes.NewReader(data)))
	assert.True(t, Exists(target))

	f, err := Open(ctx, target)
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, data, b)

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenMissing(t *testing.T) {
	ctx := makeContext(t)
	_, err := Open(ctx, filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nope")))
}

func TestOpenCancelled(t *testing.T) {
	ctx := makeContext(t)
	cctx, cancel := context.WithCancel(ctx.Context)
	cancel()
	ctx = rcontext.Wrap(cctx, ctx.Log, ctx.Config)

	_, err := Open(ctx, "/anything")
	assert.True(t, common.IsCancelled(err))
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	assert.NoError(t, Remove(target))
	assert.False(t, Exists(target))
	assert.NoError(t, Remove(target))
}

func TestVideoThumbnailLocation(t *testing.T) {
	cfg := config.StorageConfig{LocalRoot: "/local", CacheDir: "/cache"}

	p, err := VideoThumbnailPath(cfg, types.MediaReference{Id: "42"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/local", "42.thumbnail"), p)

	p, err = VideoThumbnailPath(cfg, types.MediaReference{Id: "42", RemotePath: "/album"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "42.thumbnail"), p)

	p, err = VideoThumbnailPath(cfg, types.MediaReference{Id: "42", RemotePath: "/album", NotYetUploaded: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/local", "42.thumbnail"), p)
}

func TestVideoThumbnailRoundTrip(t *testing.T) {
	ctx := makeContext(t)
	ref := types.MediaReference{Id: "v1", RemotePath: "/album", MimeType: "video/mp4"}

	_, err := LoadVideoThumbnail(ctx, ref)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, SaveVideoThumbnail(ctx, ref, test_internals.MakeTestImage(64, 48)))

	img, err := LoadVideoThumbnail(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	require.NoError(t, RemoveCachedVideoThumbnail(ctx.Config.Storage, ref.Id))
	require.NoError(t, RemoveCachedVideoThumbnail(ctx.Config.Storage, ref.Id))
	_, err = LoadVideoThumbnail(ctx, ref)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
