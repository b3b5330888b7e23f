package game

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// seatPlayers creates a room with the given names, first name as host.
// Player ids are p0, p1, ...
func seatPlayers(t *testing.T, names ...string) (*RoomManager, *Room, []string) {
	t.Helper()
	rm := NewRoomManager()
	room, err := rm.CreateRoom("p0", names[0], Avatar{Color: "#38bdf8"})
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	ids := []string{"p0"}
	for i, name := range names[1:] {
		id := fmt.Sprintf("p%d", i+1)
		if _, err := rm.Join(room.Code, id, name, Avatar{}); err != nil {
			t.Fatalf("should be able to join room: %v", err)
		}
		ids = append(ids, id)
	}
	return rm, room, ids
}

func TestNewRoomManager(t *testing.T) {
	rm := NewRoomManager()
	if rm.rooms == nil {
		t.Fatal("rooms map should be initialized")
	}
}

func TestCreateRoom(t *testing.T) {
	rm := NewRoomManager()
	room, err := rm.CreateRoom("alice-id", "Alice", Avatar{Color: "#38bdf8", IconIndex: 2})
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	if room.Code == "" {
		t.Fatal("room code should not be empty")
	}

	got, err := rm.Get(room.Code)
	if err != nil {
		t.Fatalf("should be able to retrieve created room: %v", err)
	}
	snap := got.Snapshot()
	if snap.Phase != PhaseSetup {
		t.Fatalf("expected phase %s, got %s", PhaseSetup, snap.Phase)
	}
	if snap.CurrentPlayerIndex != -1 {
		t.Fatalf("expected currentPlayerIndex -1 before game start, got %d", snap.CurrentPlayerIndex)
	}
	if len(snap.Players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(snap.Players))
	}
	creator := snap.Players[0]
	if creator.Name != "Alice" || !creator.IsHost {
		t.Fatalf("creator should be seated as host, got %+v", creator)
	}
	if creator.Avatar.IconIndex != 2 {
		t.Fatalf("avatar should be stored, got %+v", creator.Avatar)
	}
}

func TestJoinValidation(t *testing.T) {
	rm, room, _ := seatPlayers(t, "Alice")

	if _, err := rm.Join("NOPE42", "bob-id", "Bob", Avatar{}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	// duplicate name is rejected case-insensitively
	if _, err := rm.Join(room.Code, "bob-id", "alice", Avatar{}); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}

	if _, err := rm.Join(room.Code, "bob-id", "Bob", Avatar{}); err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	snap := room.Snapshot()
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}
	if snap.Players[1].IsHost {
		t.Fatal("second player should not be host")
	}

	// rejoining with a known id is an idempotent no-op, even with a
	// conflicting name
	if _, err := rm.Join(room.Code, "bob-id", "Alice", Avatar{}); err != nil {
		t.Fatalf("rejoin should be a no-op: %v", err)
	}
	if got := len(room.Snapshot().Players); got != 2 {
		t.Fatalf("rejoin should not add a player, got %d", got)
	}

	// joining a started game is rejected
	if err := room.Update(func(s *Session) error { return s.StartGame("p0", time.Now()) }); err != nil {
		t.Fatalf("host should be able to start: %v", err)
	}
	if _, err := rm.Join(room.Code, "carol-id", "Carol", Avatar{}); !errors.Is(err, ErrGameStarted) {
		t.Fatalf("expected ErrGameStarted, got %v", err)
	}
}

func TestExactlyOneHostAtEverySnapshot(t *testing.T) {
	rm, room, ids := seatPlayers(t, "Alice", "Bob", "Carol")

	countHosts := func(s *Session) int {
		n := 0
		for _, p := range s.Players {
			if p.IsHost {
				n++
			}
		}
		return n
	}
	if got := countHosts(room.Snapshot()); got != 1 {
		t.Fatalf("expected exactly one host, got %d", got)
	}

	// removing a non-host player keeps the host
	if err := rm.Leave(room.Code, ids[1]); err != nil {
		t.Fatalf("should be able to leave: %v", err)
	}
	if got := countHosts(room.Snapshot()); got != 1 {
		t.Fatalf("expected exactly one host after leave, got %d", got)
	}
}

func TestKick(t *testing.T) {
	rm, room, ids := seatPlayers(t, "Alice", "Bob")

	if err := rm.Kick(room.Code, ids[1], ids[0]); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host kick should fail with ErrNotHost, got %v", err)
	}
	if err := rm.Kick(room.Code, ids[0], ids[1]); err != nil {
		t.Fatalf("host should be able to kick: %v", err)
	}
	snap := room.Snapshot()
	if len(snap.Players) != 1 || snap.Players[0].ID != ids[0] {
		t.Fatalf("expected only the host left, got %+v", snap.Players)
	}
}

func TestEmptyRoomIsTornDown(t *testing.T) {
	rm, room, ids := seatPlayers(t, "Alice")
	if err := rm.Leave(room.Code, ids[0]); err != nil {
		t.Fatalf("should be able to leave: %v", err)
	}
	if _, err := rm.Get(room.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("emptied room should be gone, got %v", err)
	}
	if err := room.Update(func(s *Session) error { return nil }); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("writes to a torn-down room should fail, got %v", err)
	}
}

func TestUpdateVersioning(t *testing.T) {
	_, room, _ := seatPlayers(t, "Alice")
	before := room.Snapshot().Version

	if err := room.Update(func(s *Session) error { return nil }); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got := room.Snapshot().Version; got != before+1 {
		t.Fatalf("expected version %d, got %d", before+1, got)
	}

	// a failed update must not touch the document
	wantErr := errors.New("boom")
	err := room.Update(func(s *Session) error {
		s.Players[0].Name = "Mallory"
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected update error back, got %v", err)
	}
	snap := room.Snapshot()
	if snap.Version != before+1 {
		t.Fatalf("failed update should not bump version, got %d", snap.Version)
	}
	if snap.Players[0].Name != "Alice" {
		t.Fatalf("failed update should not leak changes, got %s", snap.Players[0].Name)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	_, room, _ := seatPlayers(t, "Alice")
	snap := room.Snapshot()
	snap.Players[0].Name = "Mallory"
	snap.Phase = PhaseVoting
	if got := room.Snapshot(); got.Players[0].Name != "Alice" || got.Phase != PhaseSetup {
		t.Fatal("mutating a snapshot must not affect the document")
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	_, room, _ := seatPlayers(t, "Alice")
	snaps, cancel := room.Subscribe()
	defer cancel()

	// initial state arrives immediately
	first := <-snaps
	if first.Phase != PhaseSetup {
		t.Fatalf("expected initial snapshot, got phase %s", first.Phase)
	}

	// two quick writes: an unread channel holds only the newest
	if err := room.Update(func(s *Session) error { s.Players[0].Name = "A1"; return nil }); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := room.Update(func(s *Session) error { s.Players[0].Name = "A2"; return nil }); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	latest := <-snaps
	if latest.Players[0].Name != "A2" {
		t.Fatalf("expected latest snapshot, got %s", latest.Players[0].Name)
	}
}

func TestChatBacklog(t *testing.T) {
	_, room, ids := seatPlayers(t, "Alice")
	for i := 0; i < chatBacklog+10; i++ {
		room.AppendChat(ChatMessage{ID: fmt.Sprint(i), PlayerID: ids[0], Name: "Alice", Text: "hi"})
	}
	history := room.ChatHistory()
	if len(history) != chatBacklog {
		t.Fatalf("expected %d retained messages, got %d", chatBacklog, len(history))
	}
	if history[0].ID != "10" {
		t.Fatalf("expected oldest retained message to be 10, got %s", history[0].ID)
	}
}
