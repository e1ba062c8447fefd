package pipeline_fetch

import (
	"bytes"
	"io"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/datastores"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/pkg/errors"
)

// readLocal loads the device copy of the item. A missing file is
// common.ErrNotFound.
func (p *Pipeline) readLocal(f *fetch) ([]byte, error) {
	filePath, err := datastores.LocalFile(f.ctx.Config.Storage, f.ref)
	if err != nil {
		return nil, common.ErrNotFound
	}
	r, err := datastores.Open(f.ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if f.ctx.Cancelled() {
		return nil, common.ErrCancelled
	}
	return b, nil
}

// readRemote fetches a whole object. The call is handed to the owning task
// before it starts so a cancel can abort it at any point.
func (p *Pipeline) readRemote(f *fetch, url string, directive transport.CacheDirective) ([]byte, error) {
	call := p.deps.Transport.Get(url, true, directive)
	f.calls.RegisterCall(call)
	if f.ctx.Cancelled() {
		call.Cancel()
		return nil, common.ErrCancelled
	}

	res, err := call.Execute()
	if err != nil {
		if f.ctx.Cancelled() || call.IsCancelled() {
			return nil, common.ErrCancelled
		}
		return nil, err
	}
	defer res.Body.Close()
	if f.ctx.Cancelled() {
		call.Cancel()
		return nil, common.ErrCancelled
	}

	buf := &bytes.Buffer{}
	if res.ContentLength > 0 {
		buf.Grow(int(res.ContentLength))
	}
	if _, err = io.Copy(buf, res.Body); err != nil {
		if f.ctx.Cancelled() || call.IsCancelled() {
			return nil, common.ErrCancelled
		}
		return nil, errors.Wrap(err, "error reading "+url)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) readObject(f *fetch) ([]byte, error) {
	if f.ref.RemotePath == "" {
		return nil, common.ErrNotFound
	}
	return p.readRemote(f, p.deps.Endpoints.ObjectUrl(f.ref), transport.CacheDefault)
}

// sourceResult turns a read error into a tier result. Absent sources move
// on quietly.
func sourceResult(err error) Result {
	if common.IsCancelled(err) {
		return fail(common.ErrCancelled)
	}
	if common.IsNotFound(err) {
		return skip()
	}
	return fail(err)
}
