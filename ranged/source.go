package ranged

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	HeaderSize      = 312 * 1024      // 312K header box size
	SkipLimit       = 2 * 1024 * 1024 // forward jumps beyond this re-seek instead of skipping
	MaximumRetry    = 2               // retries after the first attempt, timeouts only
	BackoffInterval = 800 * time.Millisecond

	// EndOfStream is returned by ReadAt at or beyond the end of the object.
	EndOfStream = -1

	// ReplayLimit bounds the bytes kept behind the cursor for rewinds.
	ReplayLimit = 8 * 1024 * 1024
	fillChunk   = 64 * 1024
)

var ErrClosed = errors.New("range source is closed")

type Option func(s *Source)

// WithCallRegistry hands every call the source opens to r, normally the task
// that owns the source.
func WithCallRegistry(r transport.CallRegistry) Option {
	return func(s *Source) {
		if r != nil {
			s.registry = r
		}
	}
}

func WithBackoff(interval time.Duration) Option {
	return func(s *Source) {
		s.backoff = interval
	}
}

func WithHeaderSize(size int) Option {
	return func(s *Source) {
		if size > 0 {
			s.headerCap = size
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Source) {
		if log != nil {
			s.log = log
		}
	}
}

// window is the forward-buffered middle region: one ranged response plus every
// byte received from it that is still kept for rewinds. A seek replaces the
// whole window.
type window struct {
	call       transport.Call
	body       io.ReadCloser
	replay     []byte
	rangeStart int64 // offset of replay[0]
	cursor     int64
	eof        bool
}

func (w *window) buffered() int64 {
	return w.rangeStart + int64(len(w.replay))
}

// Source gives random access to one remote object over ranged GETs. The first
// HeaderSize bytes are kept from the initial request and the last 1/20 of the
// object is fetched once and kept, because frame extractors keep coming back
// to the container header and index. Everything else is read through a
// forward window.
type Source struct {
	ctx       context.Context
	transport transport.RangeTransport
	url       string
	registry  transport.CallRegistry
	log       *logrus.Entry
	backoff   time.Duration
	headerCap int

	mu         sync.Mutex
	size       int64
	header     []byte
	tail       []byte
	tailStart  int64 // offset of tail[0]; equals size while no tail is cached
	tailRegion int64 // reads starting after this offset are served from the tail
	win        *window
	closed     bool

	callMu    sync.Mutex
	openCalls map[transport.Call]struct{}
	stopWatch func() bool
}

// Open fetches the object's length and header. It retries timeouts up to
// MaximumRetry times and returns common.ErrRetryExhausted beyond that.
func Open(ctx context.Context, t transport.RangeTransport, url string, opts ...Option) (*Source, error) {
	s := &Source{
		ctx:       ctx,
		transport: t,
		url:       url,
		registry:  transport.NoopRegistry,
		log:       logrus.WithField("url", url),
		backoff:   BackoffInterval,
		headerCap: HeaderSize,
		openCalls: make(map[transport.Call]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stopWatch = context.AfterFunc(ctx, s.abortCalls)

	err := s.withRetry("header", s.readHeader)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.log.Debugf("Opened remote source of %d bytes (header %d bytes, tail region from %d)", s.size, len(s.header), s.tailRegion)
	return s, nil
}

func (s *Source) Size() int64 {
	return s.size
}

// ReadAt copies up to length bytes at position into buffer[offset:]. It
// returns EndOfStream when position is at or past the end of the object, and
// otherwise fills the full request unless the object ends first.
func (s *Source) ReadAt(position int64, buffer []byte, offset int, length int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if err := s.checkCancelled(); err != nil {
		return 0, err
	}
	if position >= s.size {
		return EndOfStream, nil
	}
	if position < 0 || offset < 0 || length < 0 || offset+length > len(buffer) {
		return 0, errors.Errorf("invalid read of %d bytes at %d into buffer of %d at %d", length, position, len(buffer), offset)
	}
	if length == 0 {
		return 0, nil
	}
	if remaining := s.size - position; int64(length) > remaining {
		length = int(remaining)
	}
	dst := buffer[offset : offset+length]

	var n int
	var err error
	switch {
	case position+int64(length) <= int64(len(s.header)):
		n = copy(dst, s.header[position:])
	case position > s.tailRegion:
		n, err = s.readTail(position, dst)
	default:
		n, err = s.readMiddle(position, dst)
	}

	if common.IsCancelled(err) {
		s.log.Debug("Read cancelled, dropping open calls")
		s.dropWindow()
		s.abortCalls()
		return n, common.ErrCancelled
	}
	return n, err
}

// ReaderAt adapts the source to io.ReaderAt, reporting io.EOF at the end of
// the object.
func (s *Source) ReaderAt() io.ReaderAt {
	return readerAt{s: s}
}

// Close aborts any open call and releases the buffers. It is safe to call
// while another goroutine is blocked in ReadAt.
func (s *Source) Close() error {
	s.abortCalls()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.dropWindow()
	s.header = nil
	s.tail = nil
	if s.stopWatch != nil {
		s.stopWatch()
	}
	return nil
}

func (s *Source) readHeader() error {
	call := s.transport.Get(s.url, true, transport.CacheDefault)
	res, err := s.execute(call)
	if err != nil {
		return err
	}
	defer s.finishCall(call, res.Body)

	if res.ContentLength < 0 {
		return common.ErrNoContentLength
	}
	size := res.ContentLength
	headerSize := int64(s.headerCap)
	if size < headerSize {
		headerSize = size
	}
	header := make([]byte, headerSize)
	if _, err = io.ReadFull(res.Body, header); err != nil {
		return s.readError(err)
	}
	if err = s.checkCancelled(); err != nil {
		return err
	}

	s.size = size
	s.header = header
	s.tailRegion = size - (size / 20)
	s.tailStart = size
	return nil
}

// readTail serves reads in the last 1/20 of the object. The tail grows
// leftward: a read before the cached tail fetches only the missing prefix.
func (s *Source) readTail(position int64, dst []byte) (int, error) {
	if s.tail == nil || position < s.tailStart {
		end := s.tailStart
		err := s.withRetry("tail", func() error {
			return s.fetchTail(position, end)
		})
		if err != nil {
			return 0, err
		}
	}
	return copy(dst, s.tail[position-s.tailStart:]), nil
}

func (s *Source) fetchTail(start int64, end int64) error {
	call := s.transport.GetRange(s.url, start)
	res, err := s.execute(call)
	if err != nil {
		return err
	}
	defer s.finishCall(call, res.Body)

	chunk := make([]byte, end-start, (end-start)+int64(len(s.tail)))
	if _, err = io.ReadFull(res.Body, chunk); err != nil {
		return s.readError(err)
	}
	if err = s.checkCancelled(); err != nil {
		return err
	}
	s.tail = append(chunk, s.tail...)
	s.tailStart = start
	return nil
}

func (s *Source) readMiddle(position int64, dst []byte) (int, error) {
	w := s.win
	switch {
	case w == nil || position < w.rangeStart:
		// before the buffered range: nothing to rewind to
		if err := s.seek(position); err != nil {
			return 0, err
		}
	case position > w.cursor && position-w.cursor > SkipLimit:
		// far jump: a new request is cheaper than downloading the gap
		if err := s.seek(position); err != nil {
			return 0, err
		}
	}
	w = s.win

	// Behind the cursor this is a rewind into the replay buffer; ahead of it,
	// a skip that the fill loop below downloads through.
	w.cursor = position

	n := 0
	for n < len(dst) {
		if err := s.checkCancelled(); err != nil {
			return n, err
		}
		idx := w.cursor - w.rangeStart
		if idx < int64(len(w.replay)) {
			c := copy(dst[n:], w.replay[idx:])
			n += c
			w.cursor += int64(c)
			continue
		}
		if w.eof {
			break
		}
		if err := s.fill(w); err != nil {
			return n, err
		}
	}

	if n < len(dst) {
		return n, errors.Wrapf(io.ErrUnexpectedEOF, "object ended at %d, declared size %d", w.buffered(), s.size)
	}
	return n, nil
}

func (s *Source) fill(w *window) error {
	if len(w.replay) >= ReplayLimit {
		s.trimReplay(w)
	}

	if w.body == nil {
		return s.resume(w)
	}
	buf := make([]byte, fillChunk)
	n, err := w.body.Read(buf)
	if n > 0 {
		w.replay = append(w.replay, buf[:n]...)
	}
	if cerr := s.checkCancelled(); cerr != nil {
		return cerr
	}
	if err == io.EOF {
		w.eof = true
		return nil
	}
	if err != nil {
		if common.IsTransient(err) {
			s.log.Debugf("Window read at %d timed out, resuming", w.buffered())
			return s.resume(w)
		}
		return s.readError(err)
	}
	return nil
}

// trimReplay drops the oldest half of the replay buffer, keeping everything
// from the cursor on.
func (s *Source) trimReplay(w *window) {
	drop := int64(len(w.replay) - (ReplayLimit / 2))
	if maxDrop := w.cursor - w.rangeStart; drop > maxDrop {
		drop = maxDrop
	}
	if drop <= 0 {
		return
	}
	kept := make([]byte, int64(len(w.replay))-drop, ReplayLimit)
	copy(kept, w.replay[drop:])
	w.replay = kept
	w.rangeStart += drop
}

// resume replaces a stalled response with a new one starting where the
// buffered data ends, keeping the replay buffer. When no new response can be
// had the window is dropped, so the next read seeks again.
func (s *Source) resume(w *window) error {
	s.closeWindowCall(w)
	err := s.withRetry("seek", func() error {
		call := s.transport.GetRange(s.url, w.buffered())
		res, err := s.execute(call)
		if err != nil {
			return err
		}
		w.call = call
		w.body = res.Body
		return nil
	})
	if err != nil && s.win == w {
		s.dropWindow()
	}
	return err
}

func (s *Source) seek(position int64) error {
	s.dropWindow()
	return s.withRetry("seek", func() error {
		call := s.transport.GetRange(s.url, position)
		res, err := s.execute(call)
		if err != nil {
			return err
		}
		s.win = &window{
			call:       call,
			body:       res.Body,
			replay:     make([]byte, 0, fillChunk),
			rangeStart: position,
			cursor:     position,
		}
		return nil
	})
}

func (s *Source) dropWindow() {
	if s.win == nil {
		return
	}
	s.closeWindowCall(s.win)
	s.win = nil
}

func (s *Source) closeWindowCall(w *window) {
	if w.call != nil {
		s.finishCall(w.call, w.body)
	}
	w.call = nil
	w.body = nil
}

// withRetry runs fn, retrying transient failures with a linear backoff.
func (s *Source) withRetry(kind string, fn func() error) error {
	retry := 0
	for {
		if err := s.checkCancelled(); err != nil {
			return err
		}
		metrics.RangeRequests.With(prometheus.Labels{"kind": kind}).Inc()
		err := fn()
		if err == nil {
			return nil
		}
		if common.IsCancelled(err) || s.ctx.Err() != nil {
			return common.ErrCancelled
		}
		if !common.IsTransient(err) {
			return err
		}

		retry++
		if retry > MaximumRetry {
			return errors.Wrapf(common.ErrRetryExhausted, "%s read of %s failed after %d attempts (%s)", kind, s.url, retry, err.Error())
		}
		metrics.RangeRetries.With(prometheus.Labels{"kind": kind}).Inc()
		s.log.Debugf("Timeout during %s read, retry %d", kind, retry)
		if err = s.sleep(time.Duration(retry) * s.backoff); err != nil {
			return err
		}
	}
}

func (s *Source) sleep(d time.Duration) error {
	if d <= 0 {
		return s.checkCancelled()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return common.ErrCancelled
	case <-timer.C:
		return nil
	}
}

func (s *Source) checkCancelled() error {
	if s.ctx.Err() != nil {
		return common.ErrCancelled
	}
	return nil
}

func (s *Source) readError(err error) error {
	if s.ctx.Err() != nil || common.IsCancelled(err) {
		return common.ErrCancelled
	}
	if common.IsTransient(err) {
		return err
	}
	return errors.Wrap(err, "error reading "+s.url)
}

// execute registers call with the owning task and runs it, checking for
// cancellation on both sides of the request.
func (s *Source) execute(call transport.Call) (*transport.Response, error) {
	s.callMu.Lock()
	s.openCalls[call] = struct{}{}
	s.callMu.Unlock()
	s.registry.RegisterCall(call)

	if s.ctx.Err() != nil {
		s.finishCall(call, nil)
		return nil, common.ErrCancelled
	}
	res, err := call.Execute()
	if err != nil {
		s.finishCall(call, nil)
		return nil, err
	}
	if s.ctx.Err() != nil {
		s.finishCall(call, res.Body)
		return nil, common.ErrCancelled
	}
	return res, nil
}

func (s *Source) finishCall(call transport.Call, body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
	call.Cancel()
	s.callMu.Lock()
	delete(s.openCalls, call)
	s.callMu.Unlock()
}

func (s *Source) abortCalls() {
	s.callMu.Lock()
	defer s.callMu.Unlock()
	for call := range s.openCalls {
		call.Cancel()
	}
}

type readerAt struct {
	s *Source
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		c, err := r.s.ReadAt(off+int64(n), p, n, len(p)-n)
		if c == EndOfStream {
			return n, io.EOF
		}
		n += c
		if err != nil {
			return n, err
		}
		if c == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}
