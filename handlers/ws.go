package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/gastosapp/gastos-api/utils"
)

// WSHandler is the live feed: after every mutation the services publish a
// change signal, clients re-fetch the collection they care about. Implements
// services.Notifier.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024

	// Keep-alive for cloud hosting that kills idle connections
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		utils.SafeDebug("[WS] client disconnected user=%v", userID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("[WS] error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the connection. Browsers cannot set headers on websocket
// requests, so the token travels in the query string.
func (h *WSHandler) HandleWS(c *gin.Context) {
	token := c.Query("token")
	userID, err := utils.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	keys := map[string]interface{}{"user_id": userID}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		utils.SafeWarn("[WS] failed to upgrade: %v", err)
	}
}

// Publish sends a change signal to every session of the given user.
func (h *WSHandler) Publish(userID, collection, action string) {
	msg := []byte(`{"collection": "` + collection + `", "action": "` + action + `"}`)

	err := h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get("user_id")
		return exists && id == userID
	})
	if err != nil {
		utils.SafeWarn("[WS] broadcast to user %s failed: %v", utils.MaskID(userID), err)
	}
}
