// Package editormonitor is the client side companion of the publish guard.
// It inspects the editor page on a fixed interval, warns when the featured
// image is missing or looks too small and disables the publish control. It
// only improves the editing experience; the server side guard stays
// authoritative.
package editormonitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/internal/publishguard"
)

// DefaultInterval is the time between two ticks
const DefaultInterval = 800 * time.Millisecond

// NoticeID is the id of the warning element the monitor owns
const NoticeID = "nofeature-message"

var (
	// ErrNotEnforced is returned by Start when the item is not guarded
	ErrNotEnforced = errors.New("featured image is not enforced for this item")
	// ErrAlreadyRunning is returned by Start on a running monitor
	ErrAlreadyRunning = errors.New("monitor already running")
)

// Status is the outcome of one tick
type Status struct {
	Editor  string              `json:"editor"`
	Blocked bool                `json:"blocked"`
	Reason  publishguard.Reason `json:"reason"`
	Message string              `json:"message,omitempty"`
}

// Option configures a Monitor
type Option func(*Monitor)

// WithInterval overrides DefaultInterval
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// Monitor runs the heuristic check against one editor page
type Monitor struct {
	doc      Document
	prober   ImageProber
	boot     Bootstrap
	interval time.Duration
	logger   *zap.Logger

	tickMu sync.Mutex
	window *TrialWindow
	last   Status

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Monitor for doc configured by the server bootstrap
func New(doc Document, prober ImageProber, boot Bootstrap, opts ...Option) *Monitor {
	m := &Monitor{
		doc:      doc,
		prober:   prober,
		boot:     boot,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
		window:   NewTrialWindow(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tick runs one check and updates the page
func (m *Monitor) Tick() Status {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	editor := DetectEditor(m.doc)
	status := m.evaluate(editor)

	if status.Blocked {
		if err := m.block(editor, status.Message); err != nil {
			m.logger.Warn("failed to show featured image notice", zap.Error(err))
		}
	} else {
		m.unblock(editor)
	}

	if status != m.last {
		m.logger.Debug("editor monitor state changed",
			zap.String("editor", status.Editor),
			zap.Bool("blocked", status.Blocked),
			zap.String("reason", string(status.Reason)))
	}
	m.last = status
	return status
}

// Last returns the status of the most recent tick
func (m *Monitor) Last() Status {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()
	return m.last
}

func (m *Monitor) evaluate(editor EditorAdapter) Status {
	img := editor.LocateImageElement(m.doc)
	if img == nil {
		return Status{
			Editor:  editor.Name(),
			Blocked: true,
			Reason:  publishguard.ReasonMissingImage,
			Message: m.boot.MissingImageMessage,
		}
	}

	m.window.Push(m.sampleTooSmall(img))
	if m.window.TooSmall() {
		return Status{
			Editor:  editor.Name(),
			Blocked: true,
			Reason:  publishguard.ReasonImageTooSmall,
			Message: m.boot.TooSmallMessage,
		}
	}
	return Status{Editor: editor.Name(), Reason: publishguard.ReasonSatisfied}
}

func (m *Monitor) sampleTooSmall(img Element) bool {
	src, _ := img.Attr("src")
	if src == "" {
		return true
	}
	size := m.prober.NaturalSize(CanonicalImageURL(src))
	return size.Width < m.boot.MinWidth || size.Height < m.boot.MinHeight
}

func (m *Monitor) block(editor EditorAdapter, message string) error {
	notice := m.doc.Query("#" + NoticeID)
	if notice == nil {
		container := editor.LocateNoticeContainer(m.doc)
		if container != nil {
			notice = m.doc.CreateElement("div")
			notice.SetAttr("id", NoticeID)
			if err := container.InsertBefore(notice); err != nil {
				return fmt.Errorf("insert notice: %w", err)
			}
		}
	}
	if notice != nil {
		notice.AddClass("error")
		if err := notice.SetInnerHTML("<p>" + message + "</p>"); err != nil {
			return err
		}
	}

	if publish := editor.LocatePublishControl(m.doc); publish != nil {
		publish.SetAttr("disabled", "disabled")
	}
	return nil
}

func (m *Monitor) unblock(editor EditorAdapter) {
	if notice := m.doc.Query("#" + NoticeID); notice != nil {
		notice.Remove()
	}
	if publish := editor.LocatePublishControl(m.doc); publish != nil {
		publish.RemoveAttr("disabled")
	}
}

// Start runs one tick immediately and then one per interval until ctx is
// done or Stop is called
func (m *Monitor) Start(ctx context.Context) error {
	if !m.boot.Enforced {
		return ErrNotEnforced
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.Tick()
	go m.loop(ctx, m.done)

	m.logger.Info("editor monitor started", zap.Duration("interval", m.interval))
	return nil
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Stop ends the loop and waits for it. Calling Stop more than once, or on
// a monitor that never started, does nothing.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	m.logger.Info("editor monitor stopped")
}
