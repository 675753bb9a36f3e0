package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lhdbsbz/canvas/internal/agent"
)

const prescriptionTimeout = 5 * time.Minute

// ginAPIPrescriptions runs one prescription turn. With "stream": true the agent's
// events are relayed as server-sent events; otherwise the reply comes back whole.
func (s *Server) ginAPIPrescriptions(c *gin.Context) {
	var body PrescriptionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "question required"})
		return
	}
	if s.Prescriber == nil || s.Prescriber.Client == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": agent.ErrNoClient.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), prescriptionTimeout)
	defer cancel()

	if body.Stream {
		s.streamPrescription(ctx, c, body)
		return
	}

	res, err := s.Prescriber.Ask(ctx, agent.AskParams{History: body.History, Question: body.Question})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, agent.ErrEmptyQuestion) {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prescriptionResponse(res))
}

func (s *Server) streamPrescription(ctx context.Context, c *gin.Context, body PrescriptionRequest) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	sink := func(evt agent.Event) {
		c.SSEvent(evt.Type, evt)
		c.Writer.Flush()
	}
	res, err := s.Prescriber.Ask(ctx, agent.AskParams{
		History:  body.History,
		Question: body.Question,
		Sink:     sink,
	})
	if err != nil {
		// the error event has already been relayed
		slog.Error("prescription stream error", "error", err)
		return
	}
	c.SSEvent("result", prescriptionResponse(res))
	c.Writer.Flush()
}

func prescriptionResponse(res *agent.Result) PrescriptionResponse {
	return PrescriptionResponse{
		RunID:          res.RunID,
		Reply:          res.Reply,
		Model:          res.Model,
		StopReason:     res.StopReason,
		Turn:           res.Turn,
		History:        res.History,
		DisplayHistory: agent.DisplayHistory(res.History),
	}
}
