package game

import (
	"time"

	"github.com/rs/zerolog/log"
)

// runTimekeeper is the host's agent for timeout-driven progress. It
// observes snapshots of the room document; whenever a replicated
// deadline exists it sleeps until expiry and then enacts the timeout
// transition, but only while a host is seated. If the deadline passes
// with no host, progress stalls until failover completes, which is the
// design's accepted failure mode.
//
// It also performs the failover itself: a snapshot with a non-empty
// roster and no host promotes the lowest-index survivor. The serialized
// versioned write makes a duplicate election attempt converge on the
// same host.
func (rm *RoomManager) runTimekeeper(r *Room) {
	snaps, cancel := r.Subscribe()
	defer cancel()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	disarm := func() {
		if armed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				disarm()
				return
			}
			if len(snap.Players) > 0 && snap.Host() == nil {
				rm.electHost(r)
				continue // election produces a fresh snapshot
			}
			disarm()
			if snap.TimerDeadline != nil {
				timer.Reset(time.Until(*snap.TimerDeadline))
				armed = true
			}
		case <-timer.C:
			armed = false
			err := r.Update(func(s *Session) error {
				from := s.Phase
				if s.EnactTimeout(time.Now()) {
					log.Debug().Str("room", s.Code).Str("from", string(from)).Str("to", string(s.Phase)).Msg("timeout transition")
				}
				return nil
			})
			if err != nil && err != ErrRoomClosed {
				log.Error().Err(err).Str("room", r.Code).Msg("timeout transition failed")
			}
		}
	}
}

func (rm *RoomManager) electHost(r *Room) {
	err := r.Update(func(s *Session) error {
		if len(s.Players) == 0 || s.Host() != nil {
			return nil
		}
		for i, p := range s.Players {
			p.IsHost = i == 0
		}
		log.Info().Str("room", s.Code).Str("host", s.Players[0].ID).Msg("promoted new host")
		return nil
	})
	if err != nil && err != ErrRoomClosed {
		log.Error().Err(err).Str("room", r.Code).Msg("host election failed")
	}
}
