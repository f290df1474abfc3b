package editormonitor_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/upb/publish-guard/internal/editormonitor"
	"github.com/upb/publish-guard/internal/editormonitor/htmldom"
	"github.com/upb/publish-guard/internal/publishguard"
	"github.com/upb/publish-guard/models"
)

const blockPage = `<html><body><div class="edit-post-layout">
<div class="components-notice-list"></div>
<div class="block-editor-writing-flow"></div>
<div class="editor-post-featured-image">%s</div>
<button class="components-button editor-post-publish-panel__toggle">Publish</button>
</div></body></html>`

const classicPage = `<html><body>
<form id="post">
  <div id="postimagediv">%s</div>
  <input type="submit" id="publish" value="Publish">
</form></body></html>`

// staticProber returns fixed sizes per URL
type staticProber struct {
	mu    sync.Mutex
	sizes map[string]models.ImageDimensions
	seen  []string
}

func (p *staticProber) NaturalSize(src string) models.ImageDimensions {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, src)
	return p.sizes[src]
}

func (p *staticProber) set(src string, w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes[src] = models.ImageDimensions{Width: w, Height: h}
}

func newProber() *staticProber {
	return &staticProber{sizes: map[string]models.ImageDimensions{}}
}

var boot = editormonitor.Bootstrap{
	Enforced:            true,
	MissingImageMessage: "<strong>No featured image.</strong>",
	TooSmallMessage:     "<strong>Too small.</strong>",
	MinWidth:            800,
	MinHeight:           600,
}

func page(t *testing.T, layout, image string) *htmldom.Page {
	t.Helper()
	p, err := htmldom.ParseString(fmt.Sprintf(layout, image))
	require.NoError(t, err)
	return p
}

func TestDetectEditor(t *testing.T) {
	assert.Equal(t, "block", editormonitor.DetectEditor(page(t, blockPage, "")).Name())
	assert.Equal(t, "classic", editormonitor.DetectEditor(page(t, classicPage, "")).Name())
}

func TestTick_MissingImageBlocksClassic(t *testing.T) {
	doc := page(t, classicPage, "")
	m := editormonitor.New(doc, newProber(), boot)

	status := m.Tick()
	assert.True(t, status.Blocked)
	assert.Equal(t, publishguard.ReasonMissingImage, status.Reason)
	assert.Equal(t, "classic", status.Editor)

	disabled, ok := doc.Query("#publish").Attr("disabled")
	assert.True(t, ok)
	assert.Equal(t, "disabled", disabled)

	out, err := doc.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="nofeature-message" class="error"><p><strong>No featured image.</strong></p></div><form id="post">`)

	// a second tick reuses the notice
	m.Tick()
	out, err = doc.Render()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "nofeature-message"))
}

func TestTick_SizeHeuristicBlockEditor(t *testing.T) {
	doc := page(t, blockPage, `<img src="https://cdn.example.com/hero-300x200.jpg">`)
	prober := newProber()
	prober.set("https://cdn.example.com/hero.jpg", 640, 480)
	m := editormonitor.New(doc, prober, boot)

	// the window starts full of failures so one more failing sample blocks
	status := m.Tick()
	assert.True(t, status.Blocked)
	assert.Equal(t, publishguard.ReasonImageTooSmall, status.Reason)
	assert.Equal(t, "block", status.Editor)
	assert.NotNil(t, doc.Query(".editor-post-publish-panel__toggle"))
	_, ok := doc.Query(".editor-post-publish-panel__toggle").Attr("disabled")
	assert.True(t, ok)
	assert.Equal(t, []string{"https://cdn.example.com/hero.jpg"}, prober.seen, "canonical url probed")

	out, err := doc.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="nofeature-message" class="error"><p><strong>Too small.</strong></p></div><div class="components-notice-list">`)

	// one passing sample clears the warning
	prober.set("https://cdn.example.com/hero.jpg", 1600, 1200)
	status = m.Tick()
	assert.False(t, status.Blocked)
	assert.Equal(t, publishguard.ReasonSatisfied, status.Reason)
	assert.Nil(t, doc.Query("#nofeature-message"))
	_, ok = doc.Query(".editor-post-publish-panel__toggle").Attr("disabled")
	assert.False(t, ok)

	// blocking again takes three failing samples in a row
	prober.set("https://cdn.example.com/hero.jpg", 10, 10)
	assert.False(t, m.Tick().Blocked)
	assert.False(t, m.Tick().Blocked)
	assert.True(t, m.Tick().Blocked)
}

func TestTick_EmptySourceCountsAsTooSmall(t *testing.T) {
	doc := page(t, classicPage, `<img src="">`)
	m := editormonitor.New(doc, newProber(), boot)

	status := m.Tick()
	assert.True(t, status.Blocked)
	assert.Equal(t, publishguard.ReasonImageTooSmall, status.Reason)
}

func TestTick_ZeroMinimumPassesPendingLoads(t *testing.T) {
	doc := page(t, classicPage, `<img src="https://cdn.example.com/a.jpg">`)
	zero := boot
	zero.MinWidth, zero.MinHeight = 0, 0
	m := editormonitor.New(doc, newProber(), zero)

	assert.False(t, m.Tick().Blocked)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := page(t, classicPage, "")
	m := editormonitor.New(doc, newProber(), boot, editormonitor.WithInterval(5*time.Millisecond))

	require.NoError(t, m.Start(context.Background()))
	// the first tick runs synchronously
	assert.True(t, m.Last().Blocked)
	assert.ErrorIs(t, m.Start(context.Background()), editormonitor.ErrAlreadyRunning)

	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Stop()

	// restartable after stop
	require.NoError(t, m.Start(context.Background()))
	m.Stop()
}

func TestStart_ContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := editormonitor.New(page(t, classicPage, ""), newProber(), boot, editormonitor.WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	cancel()
	m.Stop()
}

func TestStart_NotEnforced(t *testing.T) {
	off := boot
	off.Enforced = false
	m := editormonitor.New(page(t, classicPage, ""), newProber(), off)

	assert.ErrorIs(t, m.Start(context.Background()), editormonitor.ErrNotEnforced)
	m.Stop()
}
