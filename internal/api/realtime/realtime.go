package realtime

import (
	"socialverse-backend/internal/middleware"
	"socialverse-backend/internal/realtime"

	"github.com/gin-gonic/gin"
)

// RealtimeHandler 把 websocket 升级请求交给 realtime.Server
type RealtimeHandler struct {
	server *realtime.Server
}

func NewRealtimeHandler(server *realtime.Server) *RealtimeHandler {
	return &RealtimeHandler{server: server}
}

func (h *RealtimeHandler) Connect(c *gin.Context) {
	h.server.Serve(c.Writer, c.Request, middleware.UserID(c))
}
