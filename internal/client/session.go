package client

import (
	"encoding/json"
	"maps"
	"regexp"
	"slices"
	"sync"
)

// connectionLine matches the instance log line that announces its public
// address before the running frame arrives.
var connectionLine = regexp.MustCompile("selecting connection `?(\\d+\\.\\d+\\.\\d+\\.\\d+:\\d+)")

// Session is the mutable runtime state of one connection to the service.
// The receive loop is the only writer of pushed state; REST operations write
// the sync flags, the launch id and the user token. All access goes through
// the mutex.
type Session struct {
	mu sync.RWMutex

	userToken   string
	visitSecret string

	regions  map[string]string
	versions []string
	slots    map[string]json.RawMessage
	saves    map[string]string
	mods     []ModEntry

	running       bool
	launchID      string
	serverAddress string
	status        ServerStatus

	seq         Sequencer
	modsSynced  bool
	savesSynced bool
}

// Snapshot is a consistent copy of a Session for rendering.
type Snapshot struct {
	Regions       map[string]string
	Versions      []string
	Saves         map[string]string
	Mods          []ModEntry
	Running       bool
	LaunchID      string
	ServerAddress string
	Status        ServerStatus
	ModsSynced    bool
	SavesSynced   bool
}

// NewSession creates an offline session. userToken may be empty on first run.
func NewSession(userToken string) *Session {
	return &Session{
		userToken: userToken,
		regions:   map[string]string{},
		versions:  []string{},
		slots:     map[string]json.RawMessage{},
		saves:     map[string]string{},
		mods:      []ModEntry{},
		status:    StatusOffline,
		seq:       NewSequencer(),
	}
}

// apply runs ev through the sequencer and, if accepted, applies its state
// mutation. It returns false for dropped duplicates.
func (s *Session) apply(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seq.Accept(ev) {
		return false
	}

	switch e := ev.(type) {
	case VisitEvent:
		s.visitSecret = e.Secret
	case RegionsEvent:
		s.regions = e.Regions
	case VersionsEvent:
		s.versions = e.Versions
	case SavesEvent:
		s.saves = e.Saves
		s.savesSynced = true
	case ModsEvent:
		s.mods = e.Mods
		s.modsSynced = true
	case IdleEvent:
		s.running = false
		s.launchID = ""
		s.status = StatusOffline
		s.serverAddress = ""
		s.seq.Reset()
	case StartingEvent:
		s.running = true
		s.launchID = e.LaunchID
		s.status = StatusStarting
	case StoppingEvent:
		s.running = true
		s.launchID = e.LaunchID
		s.status = StatusStopping
	case RunningEvent:
		s.running = true
		s.launchID = e.LaunchID
		s.serverAddress = e.Socket
		s.status = StatusRunning
	case SlotEvent:
		s.slots[e.Slot] = e.Raw()
	case InfoEvent:
		if m := connectionLine.FindStringSubmatch(e.Line); m != nil {
			s.serverAddress = m[1]
			s.status = StatusStarting
		}
	}
	return true
}

// resetForConnect prepares the session for a fresh socket: sequence numbers
// restart and nothing counts as synced until the service pushes it again.
func (s *Session) resetForConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Reset()
	s.visitSecret = ""
	s.modsSynced = false
	s.savesSynced = false
}

func (s *Session) setUserToken(token string) {
	s.mu.Lock()
	s.userToken = token
	s.mu.Unlock()
}

func (s *Session) setLaunchID(id string) {
	s.mu.Lock()
	s.launchID = id
	s.mu.Unlock()
}

func (s *Session) setModsSynced(v bool) {
	s.mu.Lock()
	s.modsSynced = v
	s.mu.Unlock()
}

func (s *Session) setSavesSynced(v bool) {
	s.mu.Lock()
	s.savesSynced = v
	s.mu.Unlock()
}

// UserToken returns the token confirmed by the last login. Callers persist
// it for future sessions.
func (s *Session) UserToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToken
}

func (s *Session) VisitSecret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visitSecret
}

// Regions returns a copy of the region code to name map.
func (s *Session) Regions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.regions)
}

// Versions returns the launchable versions, newest first.
func (s *Session) Versions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.versions)
}

// Saves returns a copy of the slot name to display string map.
func (s *Session) Saves() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.saves)
}

// Slots returns the raw slot frames keyed by slot id.
func (s *Session) Slots() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.slots)
}

func (s *Session) Mods() []ModEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mods)
}

func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Session) ServerStatus() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ServerAddress returns the instance's public ip:port, if known.
func (s *Session) ServerAddress() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverAddress, s.serverAddress != ""
}

// LaunchID returns the id of the current instance, if any.
func (s *Session) LaunchID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.launchID, s.launchID != ""
}

func (s *Session) ModsSynced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modsSynced
}

func (s *Session) SavesSynced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.savesSynced
}

// Synced reports whether both mods and saves reflect server-confirmed state.
func (s *Session) Synced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modsSynced && s.savesSynced
}

// LastSeq returns the last handled frame num, or -1.
func (s *Session) LastSeq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq.Last()
}

// Snapshot returns a copy of the whole session taken under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Regions:       maps.Clone(s.regions),
		Versions:      slices.Clone(s.versions),
		Saves:         maps.Clone(s.saves),
		Mods:          slices.Clone(s.mods),
		Running:       s.running,
		LaunchID:      s.launchID,
		ServerAddress: s.serverAddress,
		Status:        s.status,
		ModsSynced:    s.modsSynced,
		SavesSynced:   s.savesSynced,
	}
}
