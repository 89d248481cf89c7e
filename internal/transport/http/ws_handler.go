package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// WSHandler drives one player's game over a websocket: round commands in,
// round events and leaderboard snapshots out. The server owns the question clock.
type WSHandler struct {
	service  *app.GameService
	log      *zap.Logger
	tick     time.Duration
	limit    rate.Limit
	burst    int
	upgrader websocket.Upgrader
}

// WSOption tweaks a WSHandler.
type WSOption func(*WSHandler)

// WithTick sets the clock step the server applies to the active question.
func WithTick(d time.Duration) WSOption {
	return func(h *WSHandler) { h.tick = d }
}

// WithRateLimit caps inbound messages per connection.
func WithRateLimit(perSecond float64, burst int) WSOption {
	return func(h *WSHandler) {
		h.limit = rate.Limit(perSecond)
		h.burst = burst
	}
}

func NewWSHandler(service *app.GameService, logger *zap.Logger, opts ...WSOption) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WSHandler{
		service: service,
		log:     logger,
		tick:    time.Second,
		limit:   rate.Limit(10),
		burst:   20,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Subject string `json:"subject"`
	Tier    int    `json:"tier"`
}

// answerPayload requires an explicit selection; -1 submits a timeout.
type answerPayload struct {
	Selection *int `json:"selection"`
}

type lifelinePayload struct {
	Kind domain.LifelineKind `json:"kind"`
}

type buyPayload struct {
	Lifeline domain.LifelineKind `json:"lifeline,omitempty"`
	Quantity int                 `json:"quantity,omitempty"`
	Avatar   string              `json:"avatar,omitempty"`
}

type equipPayload struct {
	Avatar string `json:"avatar"`
}

type nextResult struct {
	Round app.RoundView `json:"round"`
	More  bool          `json:"more"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player == "" {
		http.Error(w, "missing player", http.StatusBadRequest)
		return
	}
	subject := r.URL.Query().Get("subject")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	log := h.log.With(zap.String("player", player))

	profile, err := h.service.Profile(ctx, player)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}

	updates, cancel, err := h.service.Subscribe(ctx, subject)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}
	defer cancel()
	// An open round dies with its connection; spent lifelines stay spent.
	defer func() { _ = h.service.AbandonRound(context.Background(), player) }()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	clockDone := make(chan struct{})

	emit := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !emit(outboundMessage[any]{Type: "leaderboard", Payload: update}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(clockDone)
		h.runClock(ctx, player, closeSignals, emit)
	}()

	send <- outboundMessage[any]{Type: "welcome", Payload: profile}

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "rate_limited", Message: "too many messages"}})
			continue
		}
		for _, msg := range h.dispatch(ctx, player, inbound) {
			emit(msg)
		}
	}

	close(closeSignals)
	<-updatesDone
	<-clockDone
	close(send)
	<-writerDone
}

// runClock ticks the player's active question and reports expiries.
func (h *WSHandler) runClock(ctx context.Context, player string, done <-chan struct{}, emit func(outboundMessage[any]) bool) {
	if h.tick <= 0 {
		return
	}
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			res, err := h.service.Tick(ctx, player, h.tick)
			if err != nil {
				continue // no round in progress
			}
			msg := outboundMessage[any]{Type: "tick", Payload: res}
			if res.Outcome != nil {
				msg = outboundMessage[any]{Type: "timeout", Payload: res.Outcome}
			}
			if !emit(msg) {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, player string, in inboundMessage) []outboundMessage[any] {
	reply := func(typ string, payload any, err error) []outboundMessage[any] {
		out := make([]outboundMessage[any], 0, 2)
		if err != nil && !errors.Is(err, domain.ErrPersistence) {
			return append(out, outboundMessage[any]{Type: "error", Payload: errorFor(err)})
		}
		out = append(out, outboundMessage[any]{Type: typ, Payload: payload})
		if err != nil {
			// the action took effect; only saving it failed
			out = append(out, outboundMessage[any]{Type: "warning", Payload: errorFor(err)})
		}
		return out
	}

	switch in.Type {
	case "start":
		var p startPayload
		if err := decode(in.Payload, &p); err != nil {
			return reply("", nil, err)
		}
		if p.Tier == 0 {
			p.Tier = 1
		}
		view, err := h.service.StartRound(ctx, player, p.Subject, p.Tier)
		return reply("round", view, err)
	case "answer":
		var p answerPayload
		if err := decode(in.Payload, &p); err != nil {
			return reply("", nil, err)
		}
		if p.Selection == nil {
			return reply("", nil, errBadPayload)
		}
		outcome, err := h.service.SubmitAnswer(ctx, player, *p.Selection)
		return reply("answerResult", outcome, err)
	case "lifeline":
		var p lifelinePayload
		if err := decode(in.Payload, &p); err != nil {
			return reply("", nil, err)
		}
		res, err := h.service.UseLifeline(ctx, player, p.Kind)
		return reply("lifeline", res, err)
	case "next":
		view, more, err := h.service.NextQuestion(ctx, player)
		return reply("round", nextResult{Round: view, More: more}, err)
	case "finish":
		result, err := h.service.FinishRound(ctx, player)
		return reply("result", result, err)
	case "abandon":
		err := h.service.AbandonRound(ctx, player)
		return reply("abandoned", struct{}{}, err)
	case "profile":
		dash, err := h.service.Dashboard(ctx, player)
		return reply("profile", dash, err)
	case "buy":
		var p buyPayload
		if err := decode(in.Payload, &p); err != nil {
			return reply("", nil, err)
		}
		var (
			profile domain.Profile
			err     error
		)
		if p.Avatar != "" {
			profile, err = h.service.PurchaseAvatar(ctx, player, p.Avatar)
		} else {
			profile, err = h.service.PurchaseLifeline(ctx, player, p.Lifeline, p.Quantity)
		}
		return reply("profile", profile, err)
	case "equip":
		var p equipPayload
		if err := decode(in.Payload, &p); err != nil {
			return reply("", nil, err)
		}
		profile, err := h.service.Equip(ctx, player, p.Avatar)
		return reply("profile", profile, err)
	case "reset":
		profile, err := h.service.ResetProfile(ctx, player)
		return reply("profile", profile, err)
	default:
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Code: "invalid", Message: "unsupported message type"}}}
	}
}

var errBadPayload = errors.New("invalid payload")

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errBadPayload
	}
	return nil
}

// errorFor classifies err as blocked, persistence or invalid.
func errorFor(err error) errorPayload {
	code := "invalid"
	switch {
	case domain.IsBlocked(err):
		code = "blocked"
	case errors.Is(err, domain.ErrPersistence):
		code = "persistence"
	}
	return errorPayload{Code: code, Message: err.Error()}
}
