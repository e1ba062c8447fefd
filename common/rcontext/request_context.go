package rcontext

import (
	"context"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/sirupsen/logrus"
)

func Initial() RequestContext {
	return RequestContext{
		Context: context.Background(),
		Log:     logrus.WithFields(logrus.Fields{"nocontext": true}),
		Config:  *config.Get(),
	}.populate()
}

// Wrap builds a context for one fetch from a parent context, usually the
// owning task's.
func Wrap(ctx context.Context, log *logrus.Entry, cfg config.LayerConfig) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  cfg,
	}.populate()
}

type RequestContext struct {
	context.Context

	// These are also stored on the context object itself
	Log    *logrus.Entry      // lespas.logger
	Config config.LayerConfig // lespas.config
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, common.ContextLogger, c.Log)
	c.Context = context.WithValue(c.Context, common.ContextConfig, c.Config)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, common.ContextLogger, log)
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  c.Config,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}

// Cancelled reports whether the owning task has been cancelled.
func (c RequestContext) Cancelled() bool {
	return c.Err() != nil
}
