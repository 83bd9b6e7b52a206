// Package client provides the WebSocket session and REST operations for the
// factorio.zone hosting service. Types mirror the service wire protocol.
package client

import "fmt"

// EventType identifies the kind of pushed WebSocket frame.
type EventType string

const (
	EventVisit    EventType = "visit"
	EventOptions  EventType = "options"
	EventMods     EventType = "mods"
	EventIdle     EventType = "idle"
	EventStarting EventType = "starting"
	EventStopping EventType = "stopping"
	EventRunning  EventType = "running"
	EventSlot     EventType = "slot"
	EventLog      EventType = "log"
	EventInfo     EventType = "info"
	EventWarn     EventType = "warn"
	EventError    EventType = "error"
)

// Option names carried by "options" frames.
const (
	OptionRegions  = "regions"
	OptionVersions = "versions"
	OptionSaves    = "saves"
)

// ServerStatus is the lifecycle state of the hosted server instance.
type ServerStatus string

const (
	StatusOffline  ServerStatus = "OFFLINE"
	StatusStarting ServerStatus = "STARTING"
	StatusStopping ServerStatus = "STOPPING"
	StatusRunning  ServerStatus = "RUNNING"
)

// ConnState is the state of the WebSocket connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Upload limits enforced by the service.
const (
	MaxModSize  int64 = 256 << 20
	MaxSaveSize int64 = 96 << 20
)

// NumSlots is the number of save slots the service offers.
const NumSlots = 9

// SlotName returns the wire name of save slot i (1-based), e.g. "slot3".
func SlotName(i int) string {
	return fmt.Sprintf("slot%d", i)
}

// EmptySlotLabel is the display string the service uses for an unused slot.
func EmptySlotLabel(i int) string {
	return fmt.Sprintf("slot %d (empty)", i)
}

// ModEntry is a mod already uploaded to the service.
type ModEntry struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Enabled bool   `json:"enabled"`
}

// Mod describes a pending mod upload.
type Mod struct {
	Name     string
	FilePath string
	Size     int64
}

// Save describes a pending save upload into Slot.
type Save struct {
	Name     string
	FilePath string
	Size     int64
	Slot     string
}

// StartOptions selects where and what to launch.
type StartOptions struct {
	Region  string
	Version string
	Save    string
	IPv6    bool
}

// ProgressFunc receives the cumulative number of bytes transferred.
type ProgressFunc func(done int64)
