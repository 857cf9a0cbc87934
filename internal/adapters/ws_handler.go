package adapters

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/app"
	"github.com/studyhub-app/studyhub/internal/domain"
)

var upgrader = websocket.Upgrader{
	// TODO: restrict origins once the web client's deploy host is fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController upgrades HTTP requests and hands the connection to the hub.
// Identity is not established here: the client announces it over the
// channel with an authenticate event.
type WSController struct {
	Hub        *app.Hub
	ReadLimit  int64
	SendBuf    int
	PingPeriod time.Duration
}

func (ctl *WSController) Handle(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("upgrade failed")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	id := domain.NewConnID()
	conn := NewWSConnection(id, ws, ctl.SendBuf, ctl.PingPeriod)
	ctl.Hub.Connect(id, conn)
	log.Info().Str("module", "adapters.ws").Str("conn", string(id)).Msg("connection opened")

	// Close() on either pump's exit unblocks the other; the parent ctx
	// covers server shutdown.
	conn.StartWriteLoop(ctx)
	conn.StartReadLoop(ctx, ctl.Hub)
}
