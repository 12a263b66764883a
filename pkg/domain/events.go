package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCallStart    EventType = "call_start"
	EventRequestBuilt EventType = "request_built"
	EventResponse     EventType = "response"
	EventCallEnd      EventType = "call_end"
)

// FailureKind classifies how an invocation ended.
type FailureKind int

const (
	KindNone FailureKind = iota
	KindSupplier
	KindBuild
	KindTransport
	KindFault
	KindInterpretation
	KindCanceled
	KindPanic
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "success"
	case KindSupplier:
		return "supplier"
	case KindBuild:
		return "build"
	case KindTransport:
		return "transport"
	case KindFault:
		return "fault"
	case KindInterpretation:
		return "interpretation"
	case KindCanceled:
		return "canceled"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// CallEvent describes one step of an invocation.
type CallEvent struct {
	EventBase
	InvocationID string        `json:"invocation_id"`
	Operation    string        `json:"operation"`
	URL          string        `json:"url,omitempty"`
	StatusCode   int           `json:"status_code,omitempty"`
	Kind         FailureKind   `json:"kind"`
	Duration     time.Duration `json:"duration,omitempty"`
	Err          error         `json:"-"`
}

// LifecycleHooks defines callbacks for call observability.
// Hooks run synchronously on the invocation's goroutine.
type LifecycleHooks struct {
	OnCallStart    func(context.Context, *CallEvent)
	OnRequestBuilt func(context.Context, *CallEvent)
	OnResponse     func(context.Context, *CallEvent)
	OnCallEnd      func(context.Context, *CallEvent)
}

// NewCallEvent stamps an event for the given invocation.
func NewCallEvent(t EventType, inv Invocation) *CallEvent {
	return &CallEvent{
		EventBase:    EventBase{Timestamp: time.Now(), Type: t},
		InvocationID: inv.ID,
		Operation:    inv.Operation,
	}
}
