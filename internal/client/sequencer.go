package client

// Sequencer drops frames the service retransmits. Frames carrying a num at
// or below the last handled one are discarded; frames without num always
// pass. It is not safe for concurrent use; Session guards it.
type Sequencer struct {
	last int64
}

// NewSequencer returns a sequencer that accepts any num >= 0.
func NewSequencer() Sequencer {
	return Sequencer{last: -1}
}

// Accept reports whether ev should be processed and records its num.
func (s *Sequencer) Accept(ev Event) bool {
	num, ok := ev.Seq()
	if !ok {
		return true
	}
	if num <= s.last {
		return false
	}
	s.last = num
	return true
}

// Reset forgets the last handled num. The service restarts numbering after
// the instance goes idle.
func (s *Sequencer) Reset() {
	s.last = -1
}

// Last returns the last handled num, or -1.
func (s *Sequencer) Last() int64 {
	return s.last
}
