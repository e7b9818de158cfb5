package handler

import (
	"net/http"

	"aimtrainer/backend/internal/auth"
	"aimtrainer/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SocketHandler upgrades party connections and hands them to the hub.
type SocketHandler struct {
	hub      *hub.Hub
	events   hub.Handler
	resolver auth.IdentityResolver
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewSocketHandler accepts browser connections from origins only; an empty
// list accepts any origin.
func NewSocketHandler(h *hub.Hub, events hub.Handler, resolver auth.IdentityResolver, origins []string, log zerolog.Logger) *SocketHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &SocketHandler{
		hub:      h,
		events:   events,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// ServeWS upgrades to the party event stream. A token passed as ?token= or
// as a Bearer header makes the socket act as that user; without one it
// joins as a guest. A token that does not verify is refused with 401.
func (s *SocketHandler) ServeWS(c *gin.Context) {
	connID := uuid.NewString()

	identity, err := s.resolver.Resolve(auth.TokenFromRequest(c.Request), connID)
	if err != nil {
		s.log.Debug().Err(err).Msg("rejected socket token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.log.Debug().
		Str("conn_id", connID).
		Str("user_id", identity.UserID).
		Bool("guest", identity.IsGuest).
		Msg("socket connected")

	s.hub.Serve(hub.NewClient(connID, identity, conn), s.events)

	s.log.Debug().Str("conn_id", connID).Msg("socket closed")
}
