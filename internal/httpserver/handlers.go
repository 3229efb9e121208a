package httpserver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"email-triage/internal/common/errors"
	"email-triage/internal/events"
	"email-triage/internal/models"
	"email-triage/internal/triage"
)

// startRun accepts a multipart submission and launches the triage run. Only
// attachment metadata is captured; file contents are read for sizing and
// discarded. Validation happens inside the run so failures arrive as error
// events on the stream, not as HTTP errors here.
func (s *Server) startRun(c *gin.Context) {
	subject := strings.TrimSpace(c.PostForm("subject"))
	body := strings.TrimSpace(c.PostForm("body"))

	attachments := []models.AttachmentInfo{}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["attachments"] {
			if fh == nil || fh.Filename == "" {
				continue
			}
			contentType := fh.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			attachments = append(attachments, models.AttachmentInfo{
				Filename:    fh.Filename,
				ContentType: contentType,
				SizeBytes:   fh.Size,
			})
		}
	}

	runID := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.registry.Register(runID)

	raw := triage.RawEmail{Subject: subject, Body: body, Attachments: attachments}
	go s.pipeline.Run(context.Background(), runID, raw)

	c.JSON(http.StatusOK, gin.H{"run_id": runID})
}

// streamRun replays a run's events as SSE until the terminal event. An idle
// stream gets a heartbeat status event so proxies keep the connection open.
func (s *Server) streamRun(c *gin.Context) {
	runID := c.Param("run_id")
	ch, err := s.registry.Subscribe(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown run_id"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	connected := events.Status("ui", "Connected. Waiting for updates...", 0)
	c.SSEvent(string(connected.Type), connected)
	c.Writer.Flush()

	done := false
	c.Stream(func(w io.Writer) bool {
		if done {
			return false
		}
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			if ev.Terminal() {
				s.registry.Discard(runID)
				done = true
			}
			return !done
		case <-time.After(s.heartbeat):
			hb := events.Heartbeat()
			c.SSEvent(string(hb.Type), hb)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// getTicket returns a persisted ticket with its stored JSON columns already
// deserialized.
func (s *Server) getTicket(c *gin.Context) {
	ticketID := strings.TrimSpace(c.Param("ticket_id"))
	ticket, err := s.tickets.GetTicket(c.Request.Context(), ticketID)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeTicketNotFound {
			c.JSON(http.StatusNotFound, gin.H{"found": false, "ticket_id": ticketID})
			return
		}
		s.logger.WithError(err).Error("ticket lookup failed", map[string]interface{}{"ticketId": ticketID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "data": ticket})
}
