package editormonitor

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/models"
)

// ImageProber reports the natural size of an image. NaturalSize never
// blocks: it returns what is known so far, zero while a load is pending,
// and starts the load when the URL is new.
type ImageProber interface {
	NaturalSize(src string) models.ImageDimensions
}

// maxHeaderBytes bounds how much of an image is read to find its size
const maxHeaderBytes = 1 << 20

type probeState struct {
	dims    models.ImageDimensions
	loading bool
}

// HTTPProber loads image headers over HTTP on background goroutines
type HTTPProber struct {
	client  *http.Client
	base    *url.URL
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	states map[string]*probeState
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHTTPProber creates a prober. Relative image URLs are resolved against
// baseURL when it is set.
func NewHTTPProber(client *http.Client, baseURL string, logger *zap.Logger) (*HTTPProber, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var base *url.URL
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		base = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPProber{
		client:  client,
		base:    base,
		logger:  logger,
		timeout: 10 * time.Second,
		states:  make(map[string]*probeState),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// NaturalSize implements ImageProber
func (p *HTTPProber) NaturalSize(src string) models.ImageDimensions {
	if src == "" {
		return models.ImageDimensions{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.states[src]; ok {
		return st.dims
	}
	if p.closed {
		return models.ImageDimensions{}
	}

	p.states[src] = &probeState{loading: true}
	p.wg.Add(1)
	go p.load(src)
	return models.ImageDimensions{}
}

// Pending reports how many loads are still in flight
func (p *HTTPProber) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, st := range p.states {
		if st.loading {
			n++
		}
	}
	return n
}

// Wait blocks until every started load has finished
func (p *HTTPProber) Wait() {
	p.wg.Wait()
}

// Close cancels pending loads and waits for them
func (p *HTTPProber) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *HTTPProber) load(src string) {
	defer p.wg.Done()

	dims, err := p.fetch(src)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		// forget the URL so a later tick retries it
		delete(p.states, src)
		p.logger.Debug("image probe failed", zap.String("src", src), zap.Error(err))
		return
	}
	p.states[src] = &probeState{dims: dims}
	p.logger.Debug("image probed",
		zap.String("src", src),
		zap.Int("width", dims.Width),
		zap.Int("height", dims.Height))
}

func (p *HTTPProber) fetch(src string) (models.ImageDimensions, error) {
	target, err := p.resolve(src)
	if err != nil {
		return models.ImageDimensions{}, err
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.ImageDimensions{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return models.ImageDimensions{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ImageDimensions{}, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, maxHeaderBytes))
	if err != nil {
		return models.ImageDimensions{}, fmt.Errorf("decode image header: %w", err)
	}
	return models.ImageDimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (p *HTTPProber) resolve(src string) (string, error) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid image url %q: %w", src, err)
	}
	if p.base != nil {
		ref = p.base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return "", fmt.Errorf("image url %q is not absolute", src)
	}
	return ref.String(), nil
}
