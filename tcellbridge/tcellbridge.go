// Package tcellbridge forwards terminal input events into an event
// registry as term.* events.
package tcellbridge

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/eavesdrop"
)

// Event names published by the bridge.
const (
	EventKeyPress = "term.key"
	EventResize   = "term.resize"
	EventMouse    = "term.mouse"
	EventPaste    = "term.paste"
)

// Target is the publishing surface the bridge drives. Both
// *eavesdrop.Registry and *eavesdrop.Publisher satisfy it.
type Target interface {
	Publish(ctx context.Context, event any, fields ...eavesdrop.Fields) error
}

// Bridge polls a tcell screen and publishes one event per terminal event.
type Bridge struct {
	screen tcell.Screen
	target Target
	log    *zap.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates a bridge reading from screen and publishing into target. The
// screen must already be initialized.
func New(screen tcell.Screen, target Target, opts ...Option) *Bridge {
	b := &Bridge{
		screen: screen,
		target: target,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run publishes terminal events until ctx is cancelled or the screen is
// finalized.
func (b *Bridge) Run(ctx context.Context) error {
	quit := make(chan struct{})
	defer close(quit)

	events := make(chan tcell.Event, 16)
	go b.screen.ChannelEvents(events, quit)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.forward(ctx, ev)
		}
	}
}

func (b *Bridge) forward(ctx context.Context, ev tcell.Event) {
	var name string
	var fields eavesdrop.Fields

	switch tev := ev.(type) {
	case *tcell.EventKey:
		name = EventKeyPress
		fields = eavesdrop.Fields{
			"key":  tev.Name(),
			"code": int(tev.Key()),
			"mods": int(tev.Modifiers()),
		}
		if tev.Key() == tcell.KeyRune {
			fields["rune"] = string(tev.Rune())
		}
	case *tcell.EventResize:
		w, h := tev.Size()
		name = EventResize
		fields = eavesdrop.Fields{"width": w, "height": h}
	case *tcell.EventMouse:
		x, y := tev.Position()
		name = EventMouse
		fields = eavesdrop.Fields{
			"x":       x,
			"y":       y,
			"buttons": int(tev.Buttons()),
		}
	case *tcell.EventPaste:
		name = EventPaste
		fields = eavesdrop.Fields{"start": tev.Start()}
	default:
		return
	}

	if err := b.target.Publish(ctx, name, fields); err != nil {
		b.log.Warn("dispatch failed",
			zap.String("event", name),
			zap.Error(err))
	}
}
