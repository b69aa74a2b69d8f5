package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/Vision/internal/app/orch"
	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

type SignalWSController struct {
	Orch      *orch.Orchestrator
	ReadLimit int64
}

func NewSignalWSController(o *orch.Orchestrator, readLimit int64) *SignalWSController {
	return &SignalWSController{
		Orch:      o,
		ReadLimit: readLimit,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades /ws/:client_id and runs the per-client pumps. The
// role is an explicit handshake field; connections without one are rejected
// before the upgrade.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id := domain.ClientID(c.Param("client_id"))
	role, err := domain.ParseRole(c.Query("role"))
	if err != nil || id == "" {
		log.Warn().Str("module", "signal").Str("id", string(id)).Str("role", c.Query("role")).Msg("rejected: bad handshake")
		c.JSON(http.StatusBadRequest, gin.H{"error": "client id and role=publisher|subscriber required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	sess, err := ctl.Orch.Connect(ctx, id, role, conn, cancel)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("id", string(id)).Msg("connect failed")
		conn.Close()
		cancel()
		return
	}

	log.Info().
		Str("module", "signal").
		Str("id", string(id)).
		Str("role", sess.Role().String()).
		Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess, conn)
}
