package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/mineral-api/internal/hub"
	"github.com/Brownie44l1/mineral-api/internal/pipeline"
)

// HubSink delivers results to every websocket client of a hub.
type HubSink struct {
	Hub *hub.Hub
	Log logrus.FieldLogger
}

// Deliver implements pipeline.Sink.
func (s HubSink) Deliver(r pipeline.Result) {
	if err := s.Hub.BroadcastJSON(r); err != nil {
		s.Log.WithError(err).WithField("cycle", r.ID).Error("failed to encode result")
	}
}
