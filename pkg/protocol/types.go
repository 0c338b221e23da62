package protocol

import "time"

// JSON bodies of the wbghost inspection API.

// AppInfo describes a loaded app bundle.
type AppInfo struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Description  string    `json:"description,omitempty"`
	Capabilities []string  `json:"capabilities"`
	Imports      int       `json:"imports"`
	SizeBytes    int64     `json:"sizeBytes"`
	LoadedAt     time.Time `json:"loadedAt"`
}

// SessionInfo identifies a running session.
type SessionInfo struct {
	ID        string    `json:"id"`
	App       string    `json:"app"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats are the bridge and window counters of a session.
type Stats struct {
	HeapSlots     int    `json:"heapSlots"`
	LiveHandles   int    `json:"liveHandles"`
	FreeHead      uint32 `json:"freeHead"`
	LiveClosures  int    `json:"liveClosures"`
	Exceptions    int    `json:"exceptions"`
	LastException uint32 `json:"lastException,omitempty"`
	HistoryLength int    `json:"historyLength"`
	Charts        int    `json:"charts"`
	PendingTasks  int    `json:"pendingTasks"`
	ConsoleLines  int    `json:"consoleLines"`
}

// Snapshot is the state of one session.
type Snapshot struct {
	SessionInfo
	Location string `json:"location"`
	Stats    Stats  `json:"stats"`
}

// ChartSnapshot is the merged option document of a chart.
type ChartSnapshot struct {
	ID      string         `json:"id"`
	Element string         `json:"element,omitempty"`
	Updates int            `json:"updates"`
	Events  []string       `json:"events"`
	Option  map[string]any `json:"option"`
}

// ConsoleEntry is one console message written by the guest.
type ConsoleEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// StartSessionRequest starts a session of App.
type StartSessionRequest struct {
	App string `json:"app"`
}

// DispatchRequest fires an event at the element with id Target.
type DispatchRequest struct {
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Bubbles    bool           `json:"bubbles,omitempty"`
	Cancelable bool           `json:"cancelable,omitempty"`
	CtrlKey    bool           `json:"ctrlKey,omitempty"`
	ShiftKey   bool           `json:"shiftKey,omitempty"`
	AltKey     bool           `json:"altKey,omitempty"`
	MetaKey    bool           `json:"metaKey,omitempty"`
	Key        string         `json:"key,omitempty"`
	Button     int            `json:"button,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// DispatchResult reports whether no listener canceled the event.
type DispatchResult struct {
	NotCanceled bool `json:"notCanceled"`
}

// ChartEventRequest delivers an event to the handlers of a chart.
type ChartEventRequest struct {
	Event  string         `json:"event"`
	Params map[string]any `json:"params,omitempty"`
}

// ChartEventResult is the number of handlers that ran.
type ChartEventResult struct {
	Handled int `json:"handled"`
}

// NavigateRequest moves through the session history.
type NavigateRequest struct {
	Delta int `json:"delta"`
}

// NavigateResult is the location after navigation.
type NavigateResult struct {
	Location string `json:"location"`
}

// Error is the body of every failed request.
type Error struct {
	Error string `json:"error"`
}
