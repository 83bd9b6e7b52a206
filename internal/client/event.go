package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Event is a decoded inbound frame. The concrete types below are the only
// implementations.
type Event interface {
	Type() EventType
	// Seq returns the frame's sequence number, if it carried one.
	Seq() (int64, bool)
	// Raw returns the undecoded frame.
	Raw() json.RawMessage
	isEvent()
}

// Header holds the fields shared by every frame.
type Header struct {
	Kind EventType
	Num  *int64
	Data json.RawMessage
}

func (h Header) Type() EventType      { return h.Kind }
func (h Header) Raw() json.RawMessage { return h.Data }
func (Header) isEvent()               {}

func (h Header) Seq() (int64, bool) {
	if h.Num == nil {
		return 0, false
	}
	return *h.Num, true
}

// VisitEvent carries the per-connection secret that authorizes REST calls.
type VisitEvent struct {
	Header
	Secret string
}

// RegionsEvent replaces the region code to name map.
type RegionsEvent struct {
	Header
	Regions map[string]string
}

// VersionsEvent replaces the list of launchable game versions, newest first.
type VersionsEvent struct {
	Header
	Versions []string
}

// SavesEvent replaces the slot name to display string map.
type SavesEvent struct {
	Header
	Saves map[string]string
}

// OptionsEvent is an options frame with a name this client does not track.
type OptionsEvent struct {
	Header
	Name string
}

// ModsEvent replaces the uploaded mod list.
type ModsEvent struct {
	Header
	Mods []ModEntry
}

type IdleEvent struct {
	Header
}

type StartingEvent struct {
	Header
	LaunchID string
}

type StoppingEvent struct {
	Header
	LaunchID string
}

// RunningEvent reports a launched instance and its public socket address.
type RunningEvent struct {
	Header
	LaunchID string
	Socket   string
}

// SlotEvent carries the full slot payload in Raw.
type SlotEvent struct {
	Header
	Slot string
}

type LogEvent struct {
	Header
	Line string
}

type InfoEvent struct {
	Header
	Line string
}

type WarnEvent struct {
	Header
	Line string
}

type ErrorEvent struct {
	Header
	Line string
}

// UnknownEvent is any frame whose type is not part of the protocol.
type UnknownEvent struct {
	Header
}

// DecodeError reports a frame that could not be turned into an Event.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type frame struct {
	Type     EventType       `json:"type"`
	Num      *int64          `json:"num"`
	Secret   string          `json:"secret"`
	Name     string          `json:"name"`
	Options  json.RawMessage `json:"options"`
	Mods     []ModEntry      `json:"mods"`
	LaunchID json.RawMessage `json:"launchId"`
	Socket   string          `json:"socket"`
	Slot     json.RawMessage `json:"slot"`
	Line     string          `json:"line"`
}

// DecodeEvent turns one JSON frame into its typed Event.
func DecodeEvent(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &DecodeError{Frame: data, Err: err}
	}
	if f.Type == "" {
		return nil, &DecodeError{Frame: data, Err: fmt.Errorf("missing type")}
	}

	h := Header{Kind: f.Type, Num: f.Num, Data: json.RawMessage(data)}
	switch f.Type {
	case EventVisit:
		if f.Secret == "" {
			return nil, &DecodeError{Frame: data, Err: fmt.Errorf("visit without secret")}
		}
		return VisitEvent{Header: h, Secret: f.Secret}, nil
	case EventOptions:
		return decodeOptions(h, f)
	case EventMods:
		mods := f.Mods
		if mods == nil {
			mods = []ModEntry{}
		}
		return ModsEvent{Header: h, Mods: mods}, nil
	case EventIdle:
		return IdleEvent{Header: h}, nil
	case EventStarting:
		return StartingEvent{Header: h, LaunchID: rawString(f.LaunchID)}, nil
	case EventStopping:
		return StoppingEvent{Header: h, LaunchID: rawString(f.LaunchID)}, nil
	case EventRunning:
		return RunningEvent{Header: h, LaunchID: rawString(f.LaunchID), Socket: f.Socket}, nil
	case EventSlot:
		slot := rawString(f.Slot)
		if slot == "" {
			return nil, &DecodeError{Frame: data, Err: fmt.Errorf("slot frame without slot")}
		}
		return SlotEvent{Header: h, Slot: slot}, nil
	case EventLog:
		return LogEvent{Header: h, Line: f.Line}, nil
	case EventInfo:
		return InfoEvent{Header: h, Line: f.Line}, nil
	case EventWarn:
		return WarnEvent{Header: h, Line: f.Line}, nil
	case EventError:
		return ErrorEvent{Header: h, Line: f.Line}, nil
	}
	return UnknownEvent{Header: h}, nil
}

func decodeOptions(h Header, f frame) (Event, error) {
	switch f.Name {
	case OptionRegions:
		regions := map[string]string{}
		if err := unmarshalOptional(f.Options, &regions); err != nil {
			return nil, &DecodeError{Frame: h.Data, Err: fmt.Errorf("regions: %w", err)}
		}
		return RegionsEvent{Header: h, Regions: regions}, nil
	case OptionVersions:
		versions, err := decodeVersions(f.Options)
		if err != nil {
			return nil, &DecodeError{Frame: h.Data, Err: fmt.Errorf("versions: %w", err)}
		}
		return VersionsEvent{Header: h, Versions: versions}, nil
	case OptionSaves:
		saves := map[string]string{}
		if err := unmarshalOptional(f.Options, &saves); err != nil {
			return nil, &DecodeError{Frame: h.Data, Err: fmt.Errorf("saves: %w", err)}
		}
		return SavesEvent{Header: h, Saves: saves}, nil
	}
	return OptionsEvent{Header: h, Name: f.Name}, nil
}

// decodeVersions accepts either a list of version strings or an object keyed
// by version.
func decodeVersions(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}
	var versions []string
	if raw[0] == '{' {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		for v := range m {
			versions = append(versions, v)
		}
	} else if err := json.Unmarshal(raw, &versions); err != nil {
		return nil, err
	}
	sortVersions(versions)
	return versions, nil
}

// sortVersions orders dotted versions newest first, comparing numeric
// segments as numbers.
func sortVersions(vs []string) {
	sort.SliceStable(vs, func(i, j int) bool {
		return compareVersions(vs[i], vs[j]) > 0
	})
}

func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		if aErr == nil && bErr == nil {
			if an != bn {
				if an > bn {
					return 1
				}
				return -1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func unmarshalOptional(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// rawString renders a JSON string or number as a plain string. Ids on the
// wire are opaque and are not always quoted.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
