package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomClosed    = errors.New("room closed")
	ErrNotHost       = errors.New("not host")
	ErrInvalidPhase  = errors.New("invalid phase for action")
	ErrNameTaken     = errors.New("name already taken")
	ErrGameStarted   = errors.New("game already started")
	ErrTooFewPlayers = errors.New("need at least 2 players")
	ErrNotInRoom     = errors.New("player not in room")
	ErrNotPrompter   = errors.New("not the current prompter")
	ErrNotEligible   = errors.New("prompter cannot submit this round")
	ErrSelfVote      = errors.New("cannot vote for own guess")
	ErrUnknownOption = errors.New("unknown vote option")
)

type ChatMessage struct {
	ID       string    `json:"id"`
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

const chatBacklog = 50

// Room owns one session document. All reads and writes go through the
// room so concurrent submissions from different players serialize into a
// single consistent document, and every committed write fans a fresh
// snapshot out to subscribers. Version increases by exactly one per
// committed write.
type Room struct {
	Code string

	mu      sync.Mutex
	doc     *Session
	subs    map[int]chan *Session
	nextSub int
	chat    []ChatMessage
	closed  bool
}

// Update runs fn against the document under the room lock. If fn returns
// an error the document is untouched; otherwise the version is bumped
// and subscribers are notified. This is the atomic read-modify-write the
// aggregator relies on for exact quota counting.
func (r *Room) Update(fn func(*Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	staged := r.doc.clone()
	if err := fn(staged); err != nil {
		return err
	}
	staged.Version = r.doc.Version + 1
	r.doc = staged
	r.notifyLocked()
	return nil
}

// Snapshot returns a copy of the current document.
func (r *Room) Snapshot() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.clone()
}

// Subscribe registers for push-on-change snapshots. The channel holds
// only the latest snapshot: a slow reader skips intermediate states but
// always converges on the newest document. The current state is
// delivered immediately.
func (r *Room) Subscribe() (<-chan *Session, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan *Session, 1)
	id := r.nextSub
	r.nextSub++
	if r.subs == nil {
		r.subs = make(map[int]chan *Session)
	}
	r.subs[id] = ch
	if !r.closed {
		ch <- r.doc.clone()
	}
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (r *Room) notifyLocked() {
	snap := r.doc.clone()
	for _, ch := range r.subs {
		// drop the stale pending snapshot, keep only the latest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (r *Room) closeLocked() {
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

// AppendChat stores and returns a chat message. Chat rides alongside the
// session document rather than inside it; game logic never reads it.
func (r *Room) AppendChat(msg ChatMessage) ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat = append(r.chat, msg)
	if len(r.chat) > chatBacklog {
		r.chat = r.chat[len(r.chat)-chatBacklog:]
	}
	return msg
}

func (r *Room) ChatHistory() []ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChatMessage(nil), r.chat...)
}

type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// CreateRoom opens a new lobby with the creator seated as host and
// starts the room's timekeeper.
func (rm *RoomManager) CreateRoom(creatorID, name string, avatar Avatar) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code := randomCode(6)
	for rm.rooms[code] != nil {
		code = randomCode(6)
	}
	doc := &Session{
		Code:               code,
		Phase:              PhaseSetup,
		Round:              0,
		CurrentPlayerIndex: -1,
		Players: []*Player{{
			ID:     creatorID,
			Name:   name,
			Avatar: avatar,
			IsHost: true,
		}},
		Votes:    make(map[string]Vote),
		Stats:    make(map[string]*PlayerStats),
		Settings: Settings{RoundTier: 1, TimerSpeed: 1},
	}
	r := &Room{Code: code, doc: doc, subs: make(map[int]chan *Session)}
	rm.rooms[code] = r
	go rm.runTimekeeper(r)
	return r, nil
}

func (rm *RoomManager) Get(code string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r := rm.rooms[code]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Join seats a player in the lobby. Rejoining with a known player id is
// an idempotent no-op, so a reconnect never errors.
func (rm *RoomManager) Join(code, playerID, name string, avatar Avatar) (*Room, error) {
	r, err := rm.Get(code)
	if err != nil {
		return nil, err
	}
	err = r.Update(func(s *Session) error {
		if s.player(playerID) != nil {
			return nil
		}
		if s.Phase != PhaseSetup {
			return ErrGameStarted
		}
		if s.nameTaken(name) {
			return ErrNameTaken
		}
		s.Players = append(s.Players, &Player{
			ID:     playerID,
			Name:   name,
			Avatar: avatar,
			IsHost: len(s.Players) == 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Leave removes a player from the roster. Removing the host leaves the
// document host-less until the timekeeper promotes the lowest-index
// survivor. An emptied room is torn down.
func (rm *RoomManager) Leave(code, playerID string) error {
	r, err := rm.Get(code)
	if err != nil {
		return err
	}
	return rm.removePlayer(r, playerID)
}

// Kick is the host removing another player.
func (rm *RoomManager) Kick(code, actorID, targetID string) error {
	r, err := rm.Get(code)
	if err != nil {
		return err
	}
	snap := r.Snapshot()
	if !snap.isHost(actorID) {
		return ErrNotHost
	}
	if actorID == targetID {
		return ErrNotInRoom
	}
	return rm.removePlayer(r, targetID)
}

func (rm *RoomManager) removePlayer(r *Room, playerID string) error {
	var empty bool
	err := r.Update(func(s *Session) error {
		idx := -1
		for i, p := range s.Players {
			if p.ID == playerID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotInRoom
		}
		s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
		if idx <= s.CurrentPlayerIndex {
			s.CurrentPlayerIndex--
		}
		empty = len(s.Players) == 0
		if !empty {
			s.checkQuotas(time.Now())
		}
		return nil
	})
	if err != nil {
		return err
	}
	if empty {
		rm.remove(r)
	}
	return nil
}

func (rm *RoomManager) remove(r *Room) {
	rm.mu.Lock()
	delete(rm.rooms, r.Code)
	rm.mu.Unlock()
	r.mu.Lock()
	r.closeLocked()
	r.mu.Unlock()
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
