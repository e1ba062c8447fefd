package frames

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/DeveloperOl/lespas/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Extractor pulls a single still frame out of a video with ffmpeg. It is not
// meant for concurrent use; callers serialize access.
type Extractor struct {
	ffmpegPath string
	at         time.Duration
	released   atomic.Bool
}

func NewExtractor(ffmpegPath string, at time.Duration) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{ffmpegPath: ffmpegPath, at: at}
}

// FromFile extracts the frame from a video on local disk.
func (e *Extractor) FromFile(ctx context.Context, path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return e.extract(ctx, path)
}

// FromSource extracts the frame from a random access source of the given
// size. The source is exposed to ffmpeg on a loopback HTTP listener that
// honours range requests, so container indexes at the end of the file can be
// reached without reading everything in between.
func (e *Extractor) FromSource(ctx context.Context, src io.ReaderAt, size int64) (image.Image, error) {
	if e.released.Load() {
		return nil, common.ErrShutdown
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "error opening frame source listener")
	}
	srv := &http.Server{
		Handler:           SourceHandler(src, size),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logrus.Debug("Frame source listener stopped: ", err)
		}
	}()
	defer srv.Close()

	return e.extract(ctx, "http://"+listener.Addr().String()+"/video")
}

// Release stops the extractor from taking new work.
func (e *Extractor) Release() {
	e.released.Store(true)
}

func (e *Extractor) extract(ctx context.Context, input string) (image.Image, error) {
	if e.released.Load() {
		return nil, common.ErrShutdown
	}
	args := []string{"-v", "error", "-nostdin"}
	if e.at > 0 {
		args = append(args, "-ss", strconv.FormatFloat(e.at.Seconds(), 'f', 3, 64))
	}
	args = append(args, "-i", input, "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, common.ErrCancelled
		}
		return nil, errors.Wrapf(err, "ffmpeg: error extracting frame (%s)", bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg: no frame produced")
	}
	img, err := png.Decode(stdout)
	if err != nil {
		return nil, &common.DecodeError{ContentType: "image/png", Err: err}
	}
	return img, nil
}

// SourceHandler serves src as one video file, with range support.
func SourceHandler(src io.ReaderAt, size int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, "video", time.Time{}, io.NewSectionReader(src, 0, size))
	})
}
