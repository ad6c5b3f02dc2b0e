package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/harshitk99/excali-new/internal/models"
)

// Session is one authenticated connection. Membership is owned by the
// Registry and only changes through Join and Leave.
type Session struct {
	ID     string
	UserID string
	Client *Client

	rooms map[models.RoomID]struct{}
}

type Stats struct {
	Sessions    int `json:"sessions"`
	Rooms       int `json:"rooms"`
	Memberships int `json:"memberships"`
}

// Registry is the single owner of live sessions and room membership.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byClient map[*Client]*Session
	rooms    map[models.RoomID]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byClient: make(map[*Client]*Session),
		rooms:    make(map[models.RoomID]map[string]*Session),
	}
}

// Register creates the session for an authenticated client. Registering the
// same client twice returns the existing session.
func (r *Registry) Register(c *Client, userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byClient[c]; ok {
		return s
	}
	s := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Client: c,
		rooms:  make(map[models.RoomID]struct{}),
	}
	r.sessions[s.ID] = s
	r.byClient[c] = s
	return s
}

// Unregister drops the session and all its memberships. It reports whether
// the session was still registered.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return false
	}
	for room := range s.rooms {
		r.removeMember(room, s)
	}
	s.rooms = make(map[models.RoomID]struct{})
	delete(r.sessions, s.ID)
	delete(r.byClient, s.Client)
	return true
}

func (r *Registry) Find(c *Client) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byClient[c]
	return s, ok
}

// Join adds s to room. It is a no-op for unregistered sessions and for rooms
// already joined; the result reports whether membership changed.
func (r *Registry) Join(s *Session, room models.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return false
	}
	if _, ok := s.rooms[room]; ok {
		return false
	}
	s.rooms[room] = struct{}{}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[room] = members
	}
	members[s.ID] = s
	return true
}

func (r *Registry) Leave(s *Session, room models.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return false
	}
	if _, ok := s.rooms[room]; !ok {
		return false
	}
	delete(s.rooms, room)
	r.removeMember(room, s)
	return true
}

// removeMember expects r.mu held for writing.
func (r *Registry) removeMember(room models.RoomID, s *Session) {
	members := r.rooms[room]
	delete(members, s.ID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Rooms lists the rooms s has joined, in ascending order.
func (r *Registry) Rooms(s *Session) []models.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := lo.Keys(s.rooms)
	slices.Sort(rooms)
	return rooms
}

func (r *Registry) IsMember(s *Session, room models.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

type memberFilter struct {
	excludeUser    string
	excludeSession string
}

type MemberOption func(*memberFilter)

// ExcludeUser leaves out every session of userID, not only the caller's.
func ExcludeUser(userID string) MemberOption {
	return func(f *memberFilter) { f.excludeUser = userID }
}

// ExcludeSession leaves out s alone. Other sessions of the same user stay.
func ExcludeSession(s *Session) MemberOption {
	return func(f *memberFilter) { f.excludeSession = s.ID }
}

// RoomMembers snapshots the sessions joined to room at call time.
func (r *Registry) RoomMembers(room models.RoomID, opts ...MemberOption) []*Session {
	var filter memberFilter
	for _, opt := range opts {
		opt(&filter)
	}

	r.mu.RLock()
	members := lo.Values(r.rooms[room])
	r.mu.RUnlock()

	if filter.excludeUser == "" && filter.excludeSession == "" {
		return members
	}
	return lo.Filter(members, func(s *Session, _ int) bool {
		return s.UserID != filter.excludeUser && s.ID != filter.excludeSession
	})
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	memberships := lo.SumBy(lo.Values(r.rooms), func(m map[string]*Session) int {
		return len(m)
	})
	return Stats{
		Sessions:    len(r.sessions),
		Rooms:       len(r.rooms),
		Memberships: memberships,
	}
}

// CloseAll sends a going-away close frame to every registered client and
// reports how many were closed. Sessions stay registered until their read
// loops unwind.
func (r *Registry) CloseAll(reason string) int {
	r.mu.RLock()
	clients := lo.Keys(r.byClient)
	r.mu.RUnlock()

	for _, c := range clients {
		_ = c.CloseWith(websocket.CloseGoingAway, reason)
	}
	return len(clients)
}

// WaitEmpty blocks until no session is registered or ctx is done.
func (r *Registry) WaitEmpty(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if r.Stats().Sessions == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
