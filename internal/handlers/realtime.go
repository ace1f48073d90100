package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/events"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/live"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/realtime"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxClientFrame = 512
	outboxSize     = 8
)

// RealtimeHandler serves the websocket streams. Every stream is one-way: the
// server pushes JSON messages and only reads to notice the client leaving.
type RealtimeHandler struct {
	hub      *realtime.Hub
	bus      *events.Bus
	tasks    *services.TaskService
	activity *services.ActivityService
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, bus *events.Bus, tasks *services.TaskService, activity *services.ActivityService, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:      hub,
		bus:      bus,
		tasks:    tasks,
		activity: activity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

// Changes streams a change notification for every write to one of the
// caller's rows in ?table=.
func (handler *RealtimeHandler) Changes(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	if !slices.Contains(backend.Tables, table) {
		writeMessage(w, http.StatusBadRequest, "unknown table")
		return
	}
	session, err := services.ContextSessions{}.Current(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}

	subscription := handler.hub.Subscribe(table, session.UserID)
	defer subscription.Close()

	handler.stream(w, r, func(ctx context.Context, send func(any) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-subscription.C:
				if !ok || !send(change) {
					return
				}
			}
		}
	})
}

// Activity pushes the daily summaries of the last ?days= days, reloading them
// after every change to the caller's activity.
func (handler *RealtimeHandler) Activity(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	days := defaultSummaryDays
	if requested := q.Int("days"); requested != nil {
		days = *requested
	}
	if err := q.Err(); err != nil {
		writeError(w, handler.logger, err)
		return
	}
	session, err := services.ContextSessions{}.Current(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	if err := services.ValidateSummaryDays(days); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	handler.stream(w, r, func(ctx context.Context, send func(any) bool) {
		reload := func(ctx context.Context) error {
			summaries, err := handler.activity.RecentDailySummaries(ctx, days)
			if err != nil {
				return err
			}
			send(summaries)
			return nil
		}
		onError := func(err error) {
			handler.logger.Warn().Err(err).Str("user_id", session.UserID).Msg("reloading daily activity")
		}
		live.Watch(ctx, handler.hub, "user_activity", session.UserID, reload, onError)
	})
}

// Tasks pushes the caller's newest tasks, then the whole feed again whenever a
// task they create is announced.
func (handler *RealtimeHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	session, err := services.ContextSessions{}.Current(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	initial, err := handler.tasks.List(r.Context(), services.TaskFilter{})
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}

	changed := make(chan struct{}, 1)
	feed := live.NewTaskFeed(handler.bus.TaskCreated, session.UserID, initial, live.DefaultFeedLength, func([]models.Task) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	feed.Mount()
	defer feed.Unmount()

	handler.stream(w, r, func(ctx context.Context, send func(any) bool) {
		if !send(feed.Tasks()) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if !send(feed.Tasks()) {
					return
				}
			}
		}
	})
}

// stream upgrades the request and runs produce until the client disconnects
// or produce returns. Messages handed to send are written in order by a single
// writer.
func (handler *RealtimeHandler) stream(w http.ResponseWriter, r *http.Request, produce func(ctx context.Context, send func(any) bool)) {
	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		conn.SetReadLimit(maxClientFrame)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	outbox := make(chan any, outboxSize)
	send := func(message any) bool {
		select {
		case outbox <- message:
			return true
		case <-ctx.Done():
			return false
		}
	}

	produced := make(chan struct{})
	go func() {
		defer close(produced)
		defer cancel()
		produce(ctx, send)
	}()
	defer func() { <-produced }()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-outbox:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(message); err != nil {
				handler.logger.Debug().Err(err).Msg("writing message")
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				cancel()
				return
			}
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
