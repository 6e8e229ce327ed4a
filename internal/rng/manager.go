package rng

// Manager hands out the per-lane streams of one round.
type Manager struct {
	globalSeed int64
	round      int
	roundSeed  uint64
	streams    map[Lane]*Stream
}

// NewManager creates the stream manager for a (seed, round) pair.
func NewManager(globalSeed int64, round int) *Manager {
	return &Manager{
		globalSeed: globalSeed,
		round:      round,
		roundSeed:  DeriveRoundSeed(globalSeed, round),
		streams:    make(map[Lane]*Stream),
	}
}

// Round returns the round this manager was built for.
func (m *Manager) Round() int {
	return m.round
}

// RoundSeed returns the derived round seed.
func (m *Manager) RoundSeed() uint64 {
	return m.roundSeed
}

// Stream returns the stream for lane. Repeated calls return the same stream,
// so draws continue where the previous caller stopped.
func (m *Manager) Stream(lane Lane) *Stream {
	if s, ok := m.streams[lane]; ok {
		return s
	}
	s := NewStream(DeriveStreamSeed(m.roundSeed, string(lane)))
	m.streams[lane] = s
	return s
}

// Fresh returns a new stream for lane positioned at its start, leaving the
// shared stream untouched.
func (m *Manager) Fresh(lane Lane) *Stream {
	return NewStream(DeriveStreamSeed(m.roundSeed, string(lane)))
}
