package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20
	maxLogBytes    = 8 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves snapshots and event logs over HTTP and websocket
type Handler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewRouter builds the HTTP routes
func NewRouter(sessions *session.Manager, logger *zap.Logger) *mux.Router {
	h := &Handler{sessions: sessions, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}", h.getMatch).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}/log", h.getMatchLog).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}/stream", h.streamMatch).Methods(http.MethodGet)
	r.HandleFunc("/replays", h.createReplay).Methods(http.MethodPost)
	r.HandleFunc("/replays/{id}", h.getReplay).Methods(http.MethodGet)
	r.HandleFunc("/replays/{id}/stream", h.streamReplay).Methods(http.MethodGet)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	matches, replays := h.sessions.Counts()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"matches":       matches,
		"activeMatches": h.sessions.GetActiveMatchCount(),
		"replays":       replays,
	})
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	lm, err := h.sessions.GetMatch(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newMatchView(lm, lm.Snapshot()))
}

func (h *Handler) getMatchLog(w http.ResponseWriter, r *http.Request) {
	lm, err := h.sessions.GetMatch(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, lm.EventLog())
}

func (h *Handler) createReplay(w http.ResponseWriter, r *http.Request) {
	rs, err := h.sessions.LoadReplay(http.MaxBytesReader(w, r.Body, maxLogBytes))
	if err != nil {
		h.writeError(w, err)
		return
	}
	pm := rs.Match()
	h.writeJSON(w, http.StatusCreated, replayView{
		ReplayID:   rs.ID,
		FormationA: pm.FormationA.String(),
		FormationB: pm.FormationB.String(),
		Skipped:    pm.Skipped,
		Frame:      rs.Frame(),
	})
}

func (h *Handler) getReplay(w http.ResponseWriter, r *http.Request) {
	rs, err := h.sessions.GetReplay(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rs.Frame())
}

func (h *Handler) streamMatch(w http.ResponseWriter, r *http.Request) {
	lm, err := h.sessions.GetMatch(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	encode, err := encoderFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	updates, unsubscribe := lm.Subscribe()
	defer unsubscribe()
	h.logger.Debug("match stream opened",
		zap.String("match_id", lm.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)
	pump(conn, lm.Snapshot(), updates, encode, h.logger)
}

func (h *Handler) streamReplay(w http.ResponseWriter, r *http.Request) {
	rs, err := h.sessions.GetReplay(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	encode, err := encoderFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	updates, unsubscribe := rs.Subscribe()
	defer unsubscribe()
	pump(conn, rs.Frame(), updates, encode, h.logger)
}

// frameEncoder renders a value as a websocket message
type frameEncoder func(v interface{}) (messageType int, data []byte, err error)

func encoderFor(r *http.Request) (frameEncoder, error) {
	switch r.URL.Query().Get("encoding") {
	case "", "json":
		return encodeJSON, nil
	case "msgpack":
		return encodeMsgpack, nil
	default:
		return nil, errors.New("encoding must be json or msgpack")
	}
}

func encodeJSON(v interface{}) (int, []byte, error) {
	data, err := json.Marshal(v)
	return websocket.TextMessage, data, err
}

func encodeMsgpack(v interface{}) (int, []byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err := enc.Encode(v)
	return websocket.BinaryMessage, buf.Bytes(), err
}

// pump writes initial and then every update until the subscription ends or
// the peer goes away. The read side only services pongs and close frames.
func pump[T any](conn *websocket.Conn, initial T, updates <-chan T, encode frameEncoder, logger *zap.Logger) {
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v T) bool {
		messageType, data, err := encode(v)
		if err != nil {
			logger.Error("failed to encode stream frame", zap.Error(err))
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(messageType, data) == nil
	}

	if !write(initial) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if !write(v) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, session.ErrCapacity):
		code = http.StatusTooManyRequests
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		code = http.StatusRequestEntityTooLarge
	}
	h.writeJSON(w, code, map[string]string{"error": err.Error()})
}
