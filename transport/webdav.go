package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/util/readers"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubyist/circuitbreaker"
)

type Options struct {
	Username   string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	BackoffAt  int
	SelfSigned bool

	// Client overrides the HTTP client, mostly for tests.
	Client *http.Client
}

// WebDav talks to the file sharing server. Each host gets its own circuit
// breaker so a dead server fails fast instead of holding workers.
type WebDav struct {
	client    *http.Client
	username  string
	token     string
	userAgent string
	timeout   time.Duration
	breakers  *breakerSet
}

func NewWebDav(opts Options) *WebDav {
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   opts.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSClientConfig:       &tls.Config{InsecureSkipVerify: opts.SelfSigned},
				ResponseHeaderTimeout: opts.Timeout,
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	return &WebDav{
		client:    client,
		username:  opts.Username,
		token:     opts.Token,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		breakers:  newBreakerSet(opts.BackoffAt),
	}
}

func (t *WebDav) Get(url string, cacheable bool, directive CacheDirective) Call {
	return t.newCall(url, -1, cacheable, directive)
}

func (t *WebDav) GetRange(url string, start int64) Call {
	return t.newCall(url, start, false, CacheDefault)
}

func (t *WebDav) newCall(url string, start int64, cacheable bool, directive CacheDirective) *httpCall {
	ctx, cancel := context.WithCancel(context.Background())
	return &httpCall{
		transport: t,
		url:       url,
		start:     start,
		cacheable: cacheable,
		directive: directive,
		ctx:       ctx,
		cancel:    cancel,
	}
}

type httpCall struct {
	transport *WebDav
	url       string
	start     int64 // -1 for a plain request
	cacheable bool
	directive CacheDirective

	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	executed  atomic.Bool
}

func (c *httpCall) Cancel() {
	c.cancelled.Store(true)
	c.cancel()
}

func (c *httpCall) IsCancelled() bool {
	return c.cancelled.Load()
}

func (c *httpCall) Execute() (*Response, error) {
	if !c.executed.CompareAndSwap(false, true) {
		return nil, errors.New("call already executed")
	}
	if c.IsCancelled() {
		return nil, common.ErrCancelled
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.cancel()
		return nil, errors.Wrap(err, "error building request")
	}
	if c.transport.username != "" {
		req.SetBasicAuth(c.transport.username, c.transport.token)
	}
	if c.transport.userAgent != "" {
		req.Header.Set("User-Agent", c.transport.userAgent)
	}
	if c.start >= 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(c.start, 10)+"-")
	}
	if c.directive == CacheForceNetwork {
		req.Header.Set("Cache-Control", "no-cache")
	} else if !c.cacheable {
		req.Header.Set("Cache-Control", "no-store")
	}

	host := req.URL.Host
	cb := c.transport.breakers.get(host)

	var res *http.Response
	var cancelErr error
	startTime := time.Now()
	err = cb.Call(func() error {
		r, err := c.transport.client.Do(req)
		if err != nil {
			if c.IsCancelled() {
				// Superseded work says nothing about the server's health
				cancelErr = common.ErrCancelled
				return nil
			}
			return err
		}
		if r.StatusCode >= 500 {
			_ = r.Body.Close()
			return &common.ProtocolError{Url: c.url, StatusCode: r.StatusCode}
		}
		res = r
		return nil
	}, 0)
	metrics.HttpResponseTime.With(prometheus.Labels{"host": host, "method": req.Method}).Observe(time.Since(startTime).Seconds())

	if err == nil && cancelErr != nil {
		err = cancelErr
	}
	if err != nil {
		c.cancel()
		if c.IsCancelled() {
			return nil, common.ErrCancelled
		}
		if err == circuit.ErrBreakerOpen {
			return nil, errors.Wrap(err, "server "+host+" is backing off")
		}
		return nil, err
	}

	metrics.HttpResponses.With(prometheus.Labels{"host": host, "method": req.Method, "statusCode": strconv.Itoa(res.StatusCode)}).Inc()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		_ = res.Body.Close()
		c.cancel()
		return nil, &common.ProtocolError{Url: c.url, StatusCode: res.StatusCode}
	}

	var body io.ReadCloser = readers.NewIdleTimeoutReader(res.Body, c.transport.timeout, c.cancel)
	body = readers.NewCancelCloser(body, c.cancel)
	contentLength := res.ContentLength

	// Servers that ignore the Range header send the whole object
	if c.start > 0 && res.StatusCode == http.StatusOK {
		if _, err = io.CopyN(io.Discard, body, c.start); err != nil {
			_ = body.Close()
			if c.IsCancelled() {
				return nil, common.ErrCancelled
			}
			return nil, errors.Wrap(err, "error skipping to range start")
		}
		if contentLength >= 0 {
			contentLength -= c.start
		}
	}

	return &Response{
		StatusCode:    res.StatusCode,
		Header:        res.Header,
		ContentLength: contentLength,
		Body:          body,
	}, nil
}
