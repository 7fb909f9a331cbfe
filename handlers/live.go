package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ringboard/ringboard/internal/store"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type LiveHandler struct {
	store *store.Store
}

func NewLiveHandler(viewStore *store.Store) *LiveHandler {
	return &LiveHandler{store: viewStore}
}

// Stream handles GET /api/live: a websocket that pushes store changes to
// the dashboard so open views refresh without polling the REST endpoints.
func (h *LiveHandler) Stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// The REST surface is already open CORS-wide; the socket follows.
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("Live: websocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	changes, cancel := h.store.Subscribe()
	defer cancel()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			writeCtx, done := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, change)
			done()
			if err != nil {
				return
			}
		}
	}
}
