package wm

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/deskpane/internal/config"
)

// State is the lifecycle state of a window.
type State int

const (
	// StateOpening is a window whose surface is being mounted.
	StateOpening State = iota
	// StateActive is the focused window.
	StateActive
	// StateInactive is an open window without focus.
	StateInactive
	// StateClosing is a window removed from the registry whose surface is
	// still being torn down.
	StateClosing
	// StateClosed is a fully disposed window.
	StateClosed
)

// String returns a string representation of the window state.
func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear as a string in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for v := StateOpening; v <= StateClosed; v++ {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown window state %q", text)
}

// WindowInfo is a read-only snapshot of an open window.
type WindowInfo struct {
	ID      ID                   `json:"id"`
	State   State                `json:"state"`
	Active  bool                 `json:"active"`
	Options config.WindowOptions `json:"options"`
}

// ChangeKind is the kind of registry change sent to subscribers.
type ChangeKind int

const (
	// ChangeOpened is sent after a window opens.
	ChangeOpened ChangeKind = iota
	// ChangeClosed is sent after a window is removed.
	ChangeClosed
	// ChangeActivated is sent when focus moves to a window.
	ChangeActivated
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeOpened:
		return "opened"
	case ChangeClosed:
		return "closed"
	case ChangeActivated:
		return "activated"
	default:
		return "unknown"
	}
}

// MarshalText lets ChangeKind appear as a string in JSON.
func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a change kind written by MarshalText.
func (k *ChangeKind) UnmarshalText(text []byte) error {
	for v := ChangeOpened; v <= ChangeActivated; v++ {
		if v.String() == string(text) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown change kind %q", text)
}

// Change describes a registry transition and the state right after it.
type Change struct {
	Kind               ChangeKind `json:"kind"`
	ID                 ID         `json:"id"`
	Active             ID         `json:"active"`
	Open               int        `json:"open"`
	BodyOverflowHidden bool       `json:"body_overflow_hidden"`
}

var (
	// ErrWindowNotFound is returned when a window id is not open.
	ErrWindowNotFound = errors.New("window does not exist")

	// ErrRegistryClosed is returned by Open after Shutdown.
	ErrRegistryClosed = errors.New("registry is shut down")
)
