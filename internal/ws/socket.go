package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/BryanLim0214/PicPrompt/internal/config"
	"github.com/BryanLim0214/PicPrompt/internal/game"
	"github.com/BryanLim0214/PicPrompt/internal/imagegen"
)

// ConnCtx identifies one player's connection within a room.
type ConnCtx struct {
	Code     string
	PlayerID string
}

type Server struct {
	RM     *game.RoomManager
	config config.Config

	io        *socketio.Server
	provider  imagegen.Provider
	providers map[string]imagegen.Provider

	mu       sync.Mutex
	watchers map[string]struct{}
}

func New(rm *game.RoomManager, cfg config.Config) *Server {
	return &Server{RM: rm, config: cfg, watchers: make(map[string]struct{})}
}

func (srv *Server) SetProvider(p imagegen.Provider)             { srv.provider = p }
func (srv *Server) SetProviders(m map[string]imagegen.Provider) { srv.providers = m }

func (srv *Server) pickProvider() imagegen.Provider {
	if srv.providers != nil {
		if p := srv.providers[strings.ToLower(srv.config.ImageProvider)]; p != nil {
			return p
		}
	}
	return srv.provider
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// room:create
	io.OnEvent("/", "room:create", func(s socketio.Conn, payload struct {
		Name     string      `json:"name"`
		Avatar   game.Avatar `json:"avatar"`
		PlayerID string      `json:"playerId"`
	}) map[string]any {
		playerID := payload.PlayerID
		if playerID == "" {
			playerID = uuid.NewString()
		}
		room, err := srv.RM.CreateRoom(playerID, strings.TrimSpace(payload.Name), payload.Avatar)
		if err != nil {
			return srv.err(s, "create_failed", err.Error())
		}
		s.SetContext(&ConnCtx{Code: room.Code, PlayerID: playerID})
		s.Join(room.Code)
		srv.watchRoom(room)
		log.Info().Str("sid", s.ID()).Str("room", room.Code).Msg("room:create")
		s.Emit("room:state", room.Snapshot())
		return map[string]any{"roomCode": room.Code, "playerId": playerID}
	})

	// room:join
	io.OnEvent("/", "room:join", func(s socketio.Conn, payload struct {
		RoomCode string      `json:"roomCode"`
		Name     string      `json:"name"`
		Avatar   game.Avatar `json:"avatar"`
		PlayerID string      `json:"playerId"`
	}) map[string]any {
		playerID := payload.PlayerID
		if playerID == "" {
			playerID = uuid.NewString()
		}
		code := strings.ToUpper(strings.TrimSpace(payload.RoomCode))
		room, err := srv.RM.Join(code, playerID, strings.TrimSpace(payload.Name), payload.Avatar)
		if err != nil {
			return srv.err(s, joinErrCode(err), err.Error())
		}
		s.SetContext(&ConnCtx{Code: code, PlayerID: playerID})
		s.Join(code)
		srv.watchRoom(room)
		log.Info().Str("sid", s.ID()).Str("room", code).Str("playerId", playerID).Msg("room:join")
		s.Emit("chat:history", room.ChatHistory())
		return map[string]any{"roomCode": code, "playerId": playerID}
	})

	// room:resume (reconnection with a known identity)
	io.OnEvent("/", "room:resume", func(s socketio.Conn, payload struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
	}) map[string]any {
		code := strings.ToUpper(strings.TrimSpace(payload.RoomCode))
		room, err := srv.RM.Get(code)
		if err != nil {
			return srv.err(s, "room_not_found", "Room not found")
		}
		snap := room.Snapshot()
		found := false
		for _, p := range snap.Players {
			if p.ID == payload.PlayerID {
				found = true
				break
			}
		}
		if !found {
			return srv.err(s, "unauthorized", "Unknown player")
		}
		s.SetContext(&ConnCtx{Code: code, PlayerID: payload.PlayerID})
		s.Join(code)
		log.Info().Str("sid", s.ID()).Str("room", code).Str("playerId", payload.PlayerID).Msg("room:resume")
		s.Emit("room:state", snap)
		s.Emit("chat:history", room.ChatHistory())
		return map[string]any{"ok": true}
	})

	// game:settings (host, lobby only)
	io.OnEvent("/", "game:settings", func(s socketio.Conn, payload struct {
		Settings game.Settings `json:"settings"`
	}) map[string]any {
		return srv.update(s, "game:settings", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.UpdateSettings(ctx.PlayerID, payload.Settings, time.Now())
		})
	})

	// game:start (host)
	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:start", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.StartGame(ctx.PlayerID, time.Now())
		})
	})

	// game:prompt (current prompter); kicks off image generation
	io.OnEvent("/", "game:prompt", func(s socketio.Conn, payload struct {
		Prompt string `json:"prompt"`
	}) map[string]any {
		ctx, room, errResp := srv.room(s)
		if errResp != nil {
			return errResp
		}
		prompt := strings.TrimSpace(payload.Prompt)
		if prompt == "" {
			return srv.err(s, "bad_request", "Prompt must not be empty")
		}
		if err := room.Update(func(doc *game.Session) error {
			return doc.SubmitPrompt(ctx.PlayerID, prompt, time.Now())
		}); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("room", ctx.Code).Msg("game:prompt")
		go srv.generate(room, prompt)
		return map[string]any{"ok": true}
	})

	// game:guess
	io.OnEvent("/", "game:guess", func(s socketio.Conn, payload struct {
		Text string `json:"text"`
	}) map[string]any {
		return srv.update(s, "game:guess", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.SubmitGuess(ctx.PlayerID, strings.TrimSpace(payload.Text), time.Now())
		})
	})

	// game:vote
	io.OnEvent("/", "game:vote", func(s socketio.Conn, payload struct {
		Original  bool   `json:"original"`
		GuesserID string `json:"guesserId"`
	}) map[string]any {
		return srv.update(s, "game:vote", func(doc *game.Session, ctx *ConnCtx) error {
			v := game.Vote{Original: payload.Original, GuesserID: payload.GuesserID}
			return doc.SubmitVote(ctx.PlayerID, v, time.Now())
		})
	})

	// game:ready
	io.OnEvent("/", "game:ready", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:ready", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.ReadyUp(ctx.PlayerID, time.Now())
		})
	})

	// game:next (host trigger out of the reveal screen)
	io.OnEvent("/", "game:next", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:next", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.NextRound(ctx.PlayerID, time.Now())
		})
	})

	// game:retry (host, after generation failure)
	io.OnEvent("/", "game:retry", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:retry", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.RetryPrompt(ctx.PlayerID, time.Now())
		})
	})

	// game:skip (host, stuck turn)
	io.OnEvent("/", "game:skip", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:skip", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.SkipTurn(ctx.PlayerID, time.Now())
		})
	})

	// game:continue (host, awards -> final scoreboard)
	io.OnEvent("/", "game:continue", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:continue", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.FinishAwards(ctx.PlayerID, time.Now())
		})
	})

	// game:playAgain (host, back to the lobby)
	io.OnEvent("/", "game:playAgain", func(s socketio.Conn) map[string]any {
		return srv.update(s, "game:playAgain", func(doc *game.Session, ctx *ConnCtx) error {
			return doc.PlayAgain(ctx.PlayerID, time.Now())
		})
	})

	// game:kick (host removes a player)
	io.OnEvent("/", "game:kick", func(s socketio.Conn, payload struct {
		PlayerID string `json:"playerId"`
	}) map[string]any {
		ctx, _, errResp := srv.room(s)
		if errResp != nil {
			return errResp
		}
		if err := srv.RM.Kick(ctx.Code, ctx.PlayerID, payload.PlayerID); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("room", ctx.Code).Str("playerId", payload.PlayerID).Msg("game:kick")
		return map[string]any{"ok": true}
	})

	// chat:message (fire-and-forget, not part of the game document)
	io.OnEvent("/", "chat:message", func(s socketio.Conn, payload struct {
		Text string `json:"text"`
	}) map[string]any {
		ctx, room, errResp := srv.room(s)
		if errResp != nil {
			return errResp
		}
		text := strings.TrimSpace(payload.Text)
		if text == "" {
			return map[string]any{"ok": true}
		}
		name := ""
		for _, p := range room.Snapshot().Players {
			if p.ID == ctx.PlayerID {
				name = p.Name
				break
			}
		}
		msg := room.AppendChat(game.ChatMessage{
			ID:       uuid.NewString(),
			PlayerID: ctx.PlayerID,
			Name:     name,
			Text:     text,
			SentAt:   time.Now().UTC(),
		})
		io.BroadcastToRoom("/", ctx.Code, "chat:message", msg)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" && ctx.PlayerID != "" {
			// presence removal; a departed host triggers failover
			if err := srv.RM.Leave(ctx.Code, ctx.PlayerID); err != nil && err != game.ErrRoomNotFound {
				log.Warn().Err(err).Str("room", ctx.Code).Msg("leave on disconnect failed")
			}
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// update runs a document mutation for the calling connection and logs it.
func (srv *Server) update(s socketio.Conn, event string, fn func(*game.Session, *ConnCtx) error) map[string]any {
	ctx, room, errResp := srv.room(s)
	if errResp != nil {
		return errResp
	}
	if err := room.Update(func(doc *game.Session) error {
		return fn(doc, ctx)
	}); err != nil {
		return srv.err(s, "bad_request", err.Error())
	}
	log.Info().Str("room", ctx.Code).Str("playerId", ctx.PlayerID).Msg(event)
	return map[string]any{"ok": true}
}

func (srv *Server) room(s socketio.Conn) (*ConnCtx, *game.Room, map[string]any) {
	ctx, _ := s.Context().(*ConnCtx)
	if ctx == nil || ctx.Code == "" {
		return nil, nil, srv.err(s, "not_in_room", "Join a room first")
	}
	room, err := srv.RM.Get(ctx.Code)
	if err != nil {
		return nil, nil, srv.err(s, "room_not_found", "Room not found")
	}
	return ctx, room, nil
}

// watchRoom starts the per-room replication loop: every committed
// document write is pushed to all members as a full room:state snapshot,
// phase changes get a dedicated event for sound/notification clients,
// and finished rounds are exported.
func (srv *Server) watchRoom(room *game.Room) {
	srv.mu.Lock()
	if _, running := srv.watchers[room.Code]; running {
		srv.mu.Unlock()
		return
	}
	srv.watchers[room.Code] = struct{}{}
	srv.mu.Unlock()

	go func() {
		defer func() {
			srv.mu.Lock()
			delete(srv.watchers, room.Code)
			srv.mu.Unlock()
		}()
		snaps, cancel := room.Subscribe()
		defer cancel()
		var lastPhase game.Phase
		for snap := range snaps {
			srv.io.BroadcastToRoom("/", room.Code, "room:state", snap)
			if snap.Phase != lastPhase {
				srv.io.BroadcastToRoom("/", room.Code, "game:phase", map[string]any{
					"from": lastPhase, "to": snap.Phase,
				})
				srv.onPhaseChange(snap)
				lastPhase = snap.Phase
			}
		}
	}()
}

func (srv *Server) onPhaseChange(snap *game.Session) {
	if !srv.config.ExportEnabled {
		return
	}
	switch snap.Phase {
	case game.PhaseReveal:
		if err := game.ExportRound(snap, srv.config.ExportFile); err != nil {
			log.Error().Err(err).Str("room", snap.Code).Msg("failed to export round")
		}
	case game.PhaseAwards:
		if err := game.ExportAwards(snap, srv.config.ExportFile); err != nil {
			log.Error().Err(err).Str("room", snap.Code).Msg("failed to export awards")
		}
	}
}

// generate calls the image provider and reports the outcome back into
// the session document.
func (srv *Server) generate(room *game.Room, prompt string) {
	prov := srv.pickProvider()
	if prov == nil {
		_ = room.Update(func(doc *game.Session) error {
			return doc.FailGeneration("no image provider configured", time.Now())
		})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	image, err := prov.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("room", room.Code).Msg("image generation failed")
		_ = room.Update(func(doc *game.Session) error {
			return doc.FailGeneration(err.Error(), time.Now())
		})
		return
	}
	if err := room.Update(func(doc *game.Session) error {
		return doc.FinishGeneration(image, time.Now())
	}); err != nil && err != game.ErrRoomClosed {
		log.Warn().Err(err).Str("room", room.Code).Msg("discarding late image")
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func joinErrCode(err error) string {
	switch err {
	case game.ErrRoomNotFound:
		return "room_not_found"
	case game.ErrNameTaken:
		return "name_taken"
	case game.ErrGameStarted:
		return "game_started"
	default:
		return "bad_request"
	}
}
