package ws

import (
	"log/slog"

	"github.com/longlife4everest/energy-ai-dashboard/internal/advisor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// Bridge broadcasts service events to every connected dashboard.
type Bridge struct {
	hub *Hub
	log *slog.Logger
}

func NewBridge(hub *Hub, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{hub: hub, log: log}
}

func (b *Bridge) OnReport(r advisor.Report) {
	msg, err := NewEnvelope(TypeReportUpdate, r)
	if err != nil {
		b.log.Error("marshaling report", "err", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnSeries(series []model.SeriesPoint, source string, version uint64) {
	msg, err := NewEnvelope(TypeSeriesLoaded, SeriesLoadedFrom(series, source, version))
	if err != nil {
		b.log.Error("marshaling series info", "err", err)
		return
	}
	b.hub.Broadcast(msg)
}
