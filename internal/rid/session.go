package rid

import (
	"sort"
	"sync"
	"time"
)

// UAVCallback consumes a UAV record on a lifecycle event. The pointed-to
// record is a borrow valid only for the duration of the call; callbacks run
// synchronously on the goroutine that triggered the event and must not
// re-enter the registry.
type UAVCallback func(*UAVObject)

// SessionRegistry maps aircraft IDs to their merged state. The registry owns
// its records; queries return copies. A read-write lock guards the map, but
// interleaved writers still race on merge order, so concurrent callers
// should serialize updates externally.
type SessionRegistry struct {
	mu      sync.RWMutex
	uavs    map[string]*UAVObject
	timeout time.Duration

	onNewUAV     UAVCallback
	onUAVUpdate  UAVCallback
	onUAVTimeout UAVCallback
}

// NewSessionRegistry creates a registry that evicts records not seen for
// longer than timeout.
func NewSessionRegistry(timeout time.Duration) *SessionRegistry {
	return &SessionRegistry{
		uavs:    make(map[string]*UAVObject),
		timeout: timeout,
	}
}

// Update merges uav into the registry and reports whether the aircraft was
// newly seen. A UAV with an empty ID is never inserted. Signal metadata
// (RSSI, last-seen) always overwrites and the message count is bumped;
// optional message parts overwrite only when the incoming part is valid, so
// previously decoded data survives frames that omit it.
func (s *SessionRegistry) Update(uav *UAVObject) bool {
	if uav.ID == "" {
		return false
	}

	s.mu.Lock()

	existing, ok := s.uavs[uav.ID]
	if !ok {
		stored := *uav
		stored.AuthData = append([]byte(nil), uav.AuthData...)
		s.uavs[uav.ID] = &stored

		cb := s.onNewUAV
		s.mu.Unlock()

		if cb != nil {
			cb(&stored)
		}
		return true
	}

	existing.RSSI = uav.RSSI
	existing.LastSeen = uav.LastSeen
	existing.MessageCount++

	if uav.Location.Valid {
		existing.Location = uav.Location
	}
	if uav.System.Valid {
		existing.System = uav.System
	}
	if uav.SelfID.Valid {
		existing.SelfID = uav.SelfID
	}
	if uav.OperatorID.Valid {
		existing.OperatorID = uav.OperatorID
	}
	if len(uav.AuthData) > 0 {
		existing.AuthData = append([]byte(nil), uav.AuthData...)
	}

	merged := *existing
	cb := s.onUAVUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(&merged)
	}
	return false
}

// ActiveUAVs returns a snapshot of all records, most recently seen first.
func (s *SessionRegistry) ActiveUAVs() []UAVObject {
	s.mu.RLock()
	result := make([]UAVObject, 0, len(s.uavs))
	for _, uav := range s.uavs {
		result = append(result, *uav)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeen.After(result[j].LastSeen)
	})

	return result
}

// Get returns a copy of the record for id.
func (s *SessionRegistry) Get(id string) (UAVObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uav, ok := s.uavs[id]
	if !ok {
		return UAVObject{}, false
	}
	return *uav, true
}

// Count returns the number of tracked aircraft.
func (s *SessionRegistry) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uavs)
}

// Cleanup evicts every record whose last sighting is older than the
// timeout, firing the timeout callback for each, and returns the evicted
// IDs.
func (s *SessionRegistry) Cleanup() []string {
	return s.cleanupAt(time.Now())
}

func (s *SessionRegistry) cleanupAt(now time.Time) []string {
	s.mu.Lock()

	var removed []string
	var evicted []*UAVObject
	for id, uav := range s.uavs {
		if now.Sub(uav.LastSeen) > s.timeout {
			removed = append(removed, id)
			evicted = append(evicted, uav)
			delete(s.uavs, id)
		}
	}

	cb := s.onUAVTimeout
	s.mu.Unlock()

	if cb != nil {
		for _, uav := range evicted {
			cb(uav)
		}
	}

	return removed
}

// Remove erases a single record without firing callbacks.
func (s *SessionRegistry) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uavs[id]; !ok {
		return false
	}
	delete(s.uavs, id)
	return true
}

// Clear removes all records without firing callbacks.
func (s *SessionRegistry) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uavs = make(map[string]*UAVObject)
}

// SetOnNewUAV replaces the first-sighting callback.
func (s *SessionRegistry) SetOnNewUAV(cb UAVCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNewUAV = cb
}

// SetOnUAVUpdate replaces the merge callback.
func (s *SessionRegistry) SetOnUAVUpdate(cb UAVCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUAVUpdate = cb
}

// SetOnUAVTimeout replaces the eviction callback.
func (s *SessionRegistry) SetOnUAVTimeout(cb UAVCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUAVTimeout = cb
}
