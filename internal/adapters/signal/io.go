package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump processes one client's inbound stream strictly in arrival order.
// A read error is ConnectionLost: full teardown, cache left intact. The pump
// hands its own session to OnDisconnect so a teardown racing a reconnect
// cannot touch the replacement registered under the same id.
func (ctl *SignalWSController) readPump(ctx context.Context, sess core.ClientSession, c *WsSignalConn) {
	id := sess.ID()
	defer func() {
		log.Info().Str("module", "signal").Str("id", string(id)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sess)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("id", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("id", string(id)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(id domain.ClientID, c *WsSignalConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("id", string(id)).Msg("bad json")
		return
	}

	switch env.Type {
	case core.TypeOffer:
		ctl.Orch.HandleOffer(id, env.SDP)
	case core.TypeAnswer:
		ctl.Orch.HandleAnswer(id, domain.ClientID(env.To), env.SDP)
	case core.TypeICE:
		ctl.Orch.HandleCandidate(id, domain.ClientID(env.To), env.Candidate)
	case core.TypeICEComplete:
		ctl.Orch.HandleCandidate(id, domain.ClientID(env.To), nil)
	case core.TypeSubscribe:
		ctl.Orch.HandleSubscribe(id, env.Cameras)
	case core.TypePing:
		// Pure liveness; answered directly, never routed.
		ctl.sendJSON(c, core.Envelope{Type: core.TypePong, From: core.SenderRelay})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
