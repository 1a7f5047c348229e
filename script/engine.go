// Package script hosts Lua scripts wired to an event registry.
//
// Scripts see an `events` module:
//
//	local h = events.listen("greet", function(evt) print(evt.msg) end)
//	events.publish("greet", { msg = "hello" })
//	h:stop_listening()
//
// plus listen_once, eavesdrop, and eavesdrop_once. Eavesdropper callbacks
// receive the origin publisher's name as a second argument, or nil for
// global publications.
//
// gopher-lua states are not goroutine-safe. Everything that can reach a
// script callback, which means every publish on the wired registry, must
// run on the goroutine that owns the Engine.
package script

import (
	"context"
	"encoding/json"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/eavesdrop"
)

const handleTypeName = "eavesdrop.handle"

// Engine runs Lua with the events module installed.
type Engine struct {
	state *lua.LState
	reg   *eavesdrop.Registry
	pub   *eavesdrop.Publisher
	log   *zap.Logger

	mu      sync.Mutex
	handles []*eavesdrop.Handle
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPublisher makes the script act as pub: publishes go through pub's
// scope and listens register on it. Eavesdropping stays process-wide.
func WithPublisher(pub *eavesdrop.Publisher) Option {
	return func(e *Engine) {
		e.pub = pub
	}
}

// New creates an engine bound to reg.
func New(reg *eavesdrop.Registry, opts ...Option) *Engine {
	e := &Engine{
		state: lua.NewState(),
		reg:   reg,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.install()
	return e
}

// install builds the events module and the handle userdata type.
func (e *Engine) install() {
	L := e.state

	mt := L.NewTypeMetatable(handleTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"stop_listening": handleStop,
	}))

	mod := L.NewTable()
	L.SetField(mod, "publish", L.NewFunction(e.luaPublish))
	L.SetField(mod, "listen", L.NewFunction(e.luaListen))
	L.SetField(mod, "listen_once", L.NewFunction(e.luaListenOnce))
	L.SetField(mod, "eavesdrop", L.NewFunction(e.luaEavesdrop))
	L.SetField(mod, "eavesdrop_once", L.NewFunction(e.luaEavesdropOnce))
	L.SetGlobal("events", mod)
}

// RunFile executes a script file.
func (e *Engine) RunFile(path string) error {
	return e.state.DoFile(path)
}

// RunString executes script source.
func (e *Engine) RunString(src string) error {
	return e.state.DoString(src)
}

// Close cancels every registration the engine made and shuts the Lua
// state down. The engine cannot be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	handles := e.handles
	e.handles = nil
	e.mu.Unlock()

	for _, h := range handles {
		h.StopListening()
	}
	e.state.Close()
}

func (e *Engine) track(h *eavesdrop.Handle) {
	e.mu.Lock()
	e.handles = append(e.handles, h)
	e.mu.Unlock()
}

func handleStop(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if h, ok := ud.Value.(*eavesdrop.Handle); ok {
		h.StopListening()
	}
	return 0
}

func (e *Engine) pushHandle(h *eavesdrop.Handle) int {
	L := e.state
	ud := L.NewUserData()
	ud.Value = h
	L.SetMetatable(ud, L.GetTypeMetatable(handleTypeName))
	L.Push(ud)
	return 1
}

// luaPublish implements events.publish(name, fields?).
func (e *Engine) luaPublish(L *lua.LState) int {
	name := L.CheckString(1)

	var fields eavesdrop.Fields
	if L.GetTop() >= 2 {
		if tbl := L.OptTable(2, nil); tbl != nil {
			fields = tableToFields(tbl)
		}
	}
	if fields == nil {
		fields = eavesdrop.Fields{}
	}

	var err error
	if e.pub != nil {
		err = e.pub.Publish(context.Background(), name, fields)
	} else {
		err = e.reg.Publish(context.Background(), name, fields)
	}
	if err != nil {
		L.RaiseError("publish %s: %v", name, err)
	}
	return 0
}

func (e *Engine) luaListen(L *lua.LState) int     { return e.addListener(L, false) }
func (e *Engine) luaListenOnce(L *lua.LState) int { return e.addListener(L, true) }

func (e *Engine) addListener(L *lua.LState, once bool) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	listener := e.listenerFunc(fn)

	var h *eavesdrop.Handle
	var err error
	switch {
	case e.pub != nil && once:
		h, err = e.pub.ListenOnce(name, listener)
	case e.pub != nil:
		h, err = e.pub.Listen(name, listener)
	case once:
		h, err = e.reg.ListenOnce(name, listener)
	default:
		h, err = e.reg.Listen(name, listener)
	}
	if err != nil {
		L.RaiseError("listen %s: %v", name, err)
		return 0
	}
	e.track(h)
	return e.pushHandle(h)
}

func (e *Engine) luaEavesdrop(L *lua.LState) int     { return e.addEavesdropper(L, false) }
func (e *Engine) luaEavesdropOnce(L *lua.LState) int { return e.addEavesdropper(L, true) }

func (e *Engine) addEavesdropper(L *lua.LState, once bool) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	tap := e.eavesdropperFunc(fn)

	var h *eavesdrop.Handle
	var err error
	if once {
		h, err = e.reg.EavesdropOnce(name, tap)
	} else {
		h, err = e.reg.Eavesdrop(name, tap)
	}
	if err != nil {
		L.RaiseError("eavesdrop %s: %v", name, err)
		return 0
	}
	e.track(h)
	return e.pushHandle(h)
}

// listenerFunc wraps a Lua function as a registry callback. The Lua error,
// if any, propagates to the publisher like any listener failure.
func (e *Engine) listenerFunc(fn *lua.LFunction) eavesdrop.Listener {
	return func(ctx context.Context, evt eavesdrop.Event) error {
		return e.call(fn, e.eventTable(evt))
	}
}

func (e *Engine) eavesdropperFunc(fn *lua.LFunction) eavesdrop.Eavesdropper {
	return func(ctx context.Context, evt eavesdrop.Event, origin *eavesdrop.Publisher) error {
		var name lua.LValue = lua.LNil
		if origin != nil {
			name = lua.LString(origin.Name())
		}
		return e.call(fn, e.eventTable(evt), name)
	}
}

func (e *Engine) call(fn *lua.LFunction, args ...lua.LValue) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil
	}

	L := e.state
	L.Push(fn)
	for _, a := range args {
		L.Push(a)
	}
	if err := L.PCall(len(args), 0, nil); err != nil {
		e.log.Debug("script callback failed", zap.Error(err))
		return err
	}
	return nil
}

// eventTable converts a normalized event into a Lua table. Mapping events
// convert directly; schema events go through their JSON form so nested
// values flatten into plain tables.
func (e *Engine) eventTable(evt eavesdrop.Event) *lua.LTable {
	if f := evt.Fields(); f != nil {
		return fieldsToTable(e.state, f)
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		tbl := e.state.NewTable()
		tbl.RawSetString(eavesdrop.EventKey, lua.LString(evt.Name()))
		return tbl
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		tbl := e.state.NewTable()
		tbl.RawSetString(eavesdrop.EventKey, lua.LString(evt.Name()))
		return tbl
	}
	return fieldsToTable(e.state, m)
}
