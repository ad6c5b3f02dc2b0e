package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harshitk99/excali-new/internal/metrics"
	"github.com/harshitk99/excali-new/internal/protocol"
	"github.com/harshitk99/excali-new/internal/session"
	"github.com/harshitk99/excali-new/internal/utils"
)

const (
	maxMessageSize = 1 << 20

	// DefaultMaxBadFrames is how many undecodable frames in a row a client
	// may send before the connection is closed.
	DefaultMaxBadFrames = 20

	authFailedReason = "authentication failed"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

type WSHandler struct {
	auth         Authenticator
	registry     *session.Registry
	dispatcher   *Dispatcher
	upgrader     websocket.Upgrader
	logger       *zap.Logger
	maxBadFrames int
}

func NewWSHandler(auth Authenticator, registry *session.Registry, dispatcher *Dispatcher, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		auth:       auth,
		registry:   registry,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger:       logger,
		maxBadFrames: DefaultMaxBadFrames,
	}
}

// originChecker allows every origin when the list is empty or contains "*".
// Requests without an Origin header come from non-browser clients and pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// ServeHTTP upgrades, authenticates and then serves one connection until it
// closes. Authentication failures get a policy-violation close frame and
// never reach the registry.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := utils.TokenFromRequest(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		metrics.ObserveHandshake(metrics.OutcomeFailed)
		return
	}

	client := session.NewClient(conn)
	client.Advance(session.StateAuthenticating)
	userID, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		h.logger.Info("websocket authentication failed",
			zap.String("remote", r.RemoteAddr),
			zap.Error(err))
		metrics.ObserveHandshake(metrics.OutcomeRejected)
		_ = client.CloseWith(websocket.ClosePolicyViolation, authFailedReason)
		return
	}

	s := h.registry.Register(client, userID)
	client.Advance(session.StateActive)
	metrics.ObserveHandshake(metrics.OutcomeOK)
	h.publishStats()
	h.logger.Info("session opened", zap.String("session", s.ID), zap.String("user", userID))

	defer h.cleanup(s)
	h.serve(r.Context(), s)
}

func (h *WSHandler) serve(ctx context.Context, s *session.Session) {
	conn := s.Client.Conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(session.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(session.PongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepalive(s.Client, done)

	badFrames := 0
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("websocket read failed", zap.String("session", s.ID), zap.Error(err))
			}
			return
		}
		if s.Client.State() != session.StateActive {
			return
		}

		ev, err := decodeFrame(msgType, raw)
		if err != nil {
			badFrames++
			metrics.ObserveEvent("unknown", metrics.OutcomeInvalid)
			h.logger.Warn("dropping malformed frame",
				zap.String("session", s.ID),
				zap.Int("consecutive", badFrames),
				zap.Error(err))
			if badFrames >= h.maxBadFrames {
				_ = s.Client.CloseWith(websocket.CloseUnsupportedData, "too many malformed frames")
				return
			}
			continue
		}
		badFrames = 0

		_ = h.dispatcher.Dispatch(ctx, s, ev)
		_ = conn.SetReadDeadline(time.Now().Add(session.PongWait))
	}
}

var errBinaryFrame = errors.New("binary frames are not supported")

func decodeFrame(msgType int, raw []byte) (protocol.Event, error) {
	if msgType != websocket.TextMessage {
		return nil, errBinaryFrame
	}
	return protocol.Decode(raw)
}

func keepalive(c *session.Client, done <-chan struct{}) {
	ticker := time.NewTicker(session.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// cleanup closes the connection and drops the session. Both steps are
// idempotent, so the registry only reports the first call.
func (h *WSHandler) cleanup(s *session.Session) {
	_ = s.Client.Close()
	if h.registry.Unregister(s) {
		h.publishStats()
		h.logger.Info("session closed", zap.String("session", s.ID), zap.String("user", s.UserID))
	}
}

func (h *WSHandler) publishStats() {
	stats := h.registry.Stats()
	metrics.SetSessions(stats.Sessions)
	metrics.SetRooms(stats.Rooms)
}
