package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/longlife4everest/energy-ai-dashboard/internal/advisor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Service is what the handler needs from the advisor service.
type Service interface {
	CurrentReport() (advisor.Report, bool)
	RunScenario(strategy model.Strategy, pct float64) (model.ScenarioResult, error)
}

// Handler manages WebSocket connections and answers client requests.
type Handler struct {
	hub *Hub
	svc Service
	log *slog.Logger
}

func NewHandler(hub *Hub, svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{hub: hub, svc: svc, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := newClient(h.hub, conn)

	h.hub.Register(client)
	go client.writePump()

	// A new dashboard gets the latest report straight away.
	h.sendReport(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "err", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.log.Debug("invalid message", "err", err)
		h.sendError(c, "", "invalid message")
		return
	}

	switch env.Type {
	case TypeScenarioRun:
		var p ScenarioRunPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(c, env.Type, "invalid payload")
			return
		}
		strategy, ok := model.ParseStrategy(p.Strategy)
		if !ok {
			h.sendError(c, env.Type, "unknown strategy "+p.Strategy)
			return
		}
		res, err := h.svc.RunScenario(strategy, p.ReductionPct)
		if err != nil {
			h.sendError(c, env.Type, err.Error())
			return
		}
		h.send(c, TypeScenarioResult, ScenarioResultFrom(res))

	case TypeReportRequest:
		h.sendReport(c)

	default:
		h.log.Debug("unknown message type", "type", env.Type)
		h.sendError(c, env.Type, "unknown message type")
	}
}

func (h *Handler) sendReport(c *Client) {
	r, ok := h.svc.CurrentReport()
	if !ok {
		return
	}
	h.send(c, TypeReportUpdate, r)
}

func (h *Handler) sendError(c *Client, request, message string) {
	h.send(c, TypeError, ErrorPayload{Request: request, Message: message})
}

func (h *Handler) send(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.log.Error("marshaling message", "type", msgType, "err", err)
		return
	}
	h.hub.sendTo(c, msg)
}
