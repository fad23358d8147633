// Package veil provides the public API for the veil component runtime.
//
// This is the recommended import for most applications:
//
//	import "github.com/veil-ui/veil"
//
// Usage:
//
//	app := veil.NewApp()
//	app.RegisterComponent(&veil.Component{
//	    Name: "counter",
//	    Setup: func(ctx *veil.Context) (map[string]any, error) {
//	        count := veil.NewSignal(0)
//	        return map[string]any{
//	            "count":     count,
//	            "increment": func() { count.Update(func(v int) int { return v + 1 }) },
//	        }, nil
//	    },
//	    Template: veil.Static(`<button @click="increment">clicks: {{ count }}</button>`),
//	})
//	inst, err := app.Mount(veil.NewElement("div"), "counter", nil)
package veil

import (
	"github.com/veil-ui/veil/pkg/bus"
	"github.com/veil-ui/veil/pkg/dom"
	"github.com/veil-ui/veil/pkg/reactive"
	"github.com/veil-ui/veil/pkg/reconcile"
	"github.com/veil-ui/veil/pkg/runtime"
)

// =============================================================================
// Reactive cells (re-export from pkg/reactive)
// =============================================================================

// Signal is a reactive cell holding one value.
type Signal[T any] = reactive.Signal[T]

// Source is the type-erased view of a reactive cell.
type Source = reactive.Source

// NewSignal creates a reactive cell with an initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return reactive.NewSignal(initial)
}

// =============================================================================
// Document tree (re-export from pkg/dom)
// =============================================================================

// Node is an element or text node in the headless document tree.
type Node = dom.Node

// Event is a dispatched DOM event.
type Event = dom.Event

// Handler receives dispatched events.
type Handler = dom.Handler

// NewElement creates a detached element node.
var NewElement = dom.NewElement

// NewText creates a detached text node.
var NewText = dom.NewText

// ParseFragment parses an HTML fragment into detached nodes.
var ParseFragment = dom.ParseFragment

// QuerySelector returns the first descendant matching a simple selector.
var QuerySelector = dom.QuerySelector

// QuerySelectorAll returns every descendant matching a simple selector.
var QuerySelectorAll = dom.QuerySelectorAll

// =============================================================================
// Lifecycle (re-export from pkg/runtime)
// =============================================================================

// App owns the component registry and the render loop.
type App = runtime.App

// AppOption configures an App.
type AppOption = runtime.AppOption

// Component is a reusable blueprint mounted into containers.
type Component = runtime.Component

// Instance is one mounted occurrence of a Component.
type Instance = runtime.Instance

// Context is the merged environment an instance's hooks and handlers see.
type Context = runtime.Context

// Owned enumerates what an instance still holds at unmount time.
type Owned = runtime.Owned

// Plugin extends an App; each plugin installs at most once.
type Plugin = runtime.Plugin

// TemplateSource is a static or computed template/style source.
type TemplateSource = runtime.Source

// UnmountPolicy decides what happens when an unmount hook fails.
type UnmountPolicy = runtime.UnmountPolicy

// NewApp creates an App and starts its loop goroutine.
var NewApp = runtime.NewApp

// Static returns a fixed template or style source.
var Static = runtime.Static

// Computed returns a template or style source evaluated per render.
var Computed = runtime.Computed

// App options.
var (
	WithBus           = runtime.WithBus
	WithEvaluator     = runtime.WithEvaluator
	WithAppMetrics    = runtime.WithAppMetrics
	WithTracer        = runtime.WithTracer
	WithTracing       = runtime.WithTracing
	WithUnmountPolicy = runtime.WithUnmountPolicy
	WithErrorHandler  = runtime.WithErrorHandler
	WithPatchRecorder = runtime.WithPatchRecorder
)

// Unmount hook failure policies.
const (
	UnmountAbortOnHookError    = runtime.UnmountAbortOnHookError
	UnmountContinueOnHookError = runtime.UnmountContinueOnHookError
)

// Sentinel errors.
var (
	ErrNilContainer        = runtime.ErrNilContainer
	ErrComponentNotFound   = runtime.ErrComponentNotFound
	ErrMissingTemplate     = runtime.ErrMissingTemplate
	ErrComponentRegistered = runtime.ErrComponentRegistered
	ErrPluginInstalled     = runtime.ErrPluginInstalled
	ErrNotMounted          = runtime.ErrNotMounted
	ErrAppClosed           = runtime.ErrAppClosed
)

// =============================================================================
// Collaborators
// =============================================================================

// Emitter is the synchronous publish/subscribe bus shared by an App.
type Emitter = bus.Emitter

// NewEmitter creates an event bus.
var NewEmitter = bus.NewEmitter

// Patcher is the standalone tree reconciler, for embedders driving a
// tree without the lifecycle runtime.
type Patcher = reconcile.Patcher

// Recorder observes the mutations a patch pass applies.
type Recorder = reconcile.Recorder

// NewPatcher creates a standalone Patcher.
var NewPatcher = reconcile.New

// NewCountingRecorder creates a recorder that counts each mutation class.
var NewCountingRecorder = reconcile.NewCountingRecorder
