package live

import "github.com/snipkit/snipkit/pkg/registry"

// Request is one host operation sent over the bridge.
type Request struct {
	// Op selects the operation: expand, edit, jump, cycle, abort,
	// completions.
	Op string `json:"op"`

	// Filetype scopes expand and completions.
	Filetype string `json:"filetype,omitempty"`

	// Line is the line-before-cursor text for expand and completions.
	Line string `json:"line,omitempty"`

	// Session addresses an existing session for edit, jump, cycle, abort.
	Session uint32 `json:"session,omitempty"`

	// Text is the replacement text for edit.
	Text string `json:"text,omitempty"`

	// Dir is the direction for jump and cycle: 1 forward, -1 backward.
	Dir int `json:"dir,omitempty"`
}

// Response is one bridge reply or event.
type Response struct {
	// Event names the payload: expanded, render, completions, exited,
	// error.
	Event string `json:"event"`

	// Session identifies the session the event belongs to.
	Session uint32 `json:"session,omitempty"`

	// Text is the full rendered snippet text.
	Text string `json:"text,omitempty"`

	// ActivePath is the dotted jump-index path of the current stop.
	ActivePath string `json:"activePath,omitempty"`

	// ActiveIndex is the local jump-index of the current stop.
	ActiveIndex int `json:"activeIndex"`

	// Completions lists visible triggers for a completions request.
	Completions []registry.Completion `json:"completions,omitempty"`

	// Error carries the failure message for an error event.
	Error string `json:"error,omitempty"`
}

// Operation names accepted in Request.Op.
const (
	OpExpand      = "expand"
	OpEdit        = "edit"
	OpJump        = "jump"
	OpCycle       = "cycle"
	OpAbort       = "abort"
	OpCompletions = "completions"
)

// Event names sent in Response.Event.
const (
	EventExpanded    = "expanded"
	EventRender      = "render"
	EventCompletions = "completions"
	EventExited      = "exited"
	EventError       = "error"
)
