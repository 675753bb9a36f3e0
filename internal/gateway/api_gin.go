package gateway

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lhdbsbz/canvas/internal/augment"
	"github.com/lhdbsbz/canvas/internal/bridge"
	"github.com/lhdbsbz/canvas/internal/message"
	"github.com/lhdbsbz/canvas/internal/pdf"
)

const (
	apiPrefix      = "/api"
	maxMessageSize = 1 << 20
)

func (s *Server) apiAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}
		if !s.authenticate(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) registerAPIRoutes(engine *gin.Engine) {
	api := engine.Group(apiPrefix, s.apiAuthMiddleware())
	api.GET("/views", s.ginAPIViews)
	api.POST("/messages", s.ginAPIMessages)
	api.GET("/state", s.ginAPIState)
	api.DELETE("/state", s.ginAPIClearState)
	api.POST("/augment", s.ginAPIAugment)
	api.POST("/original-question", s.ginAPIOriginalQuestion)
	api.POST("/prescriptions", s.ginAPIPrescriptions)
	api.POST("/export/pdf", s.ginAPIExportPDF)
	api.POST("/user-data/request", s.ginAPIRequestUserData)
}

func (s *Server) ginAPIViews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"views": s.Views.List()})
}

// ginAPIMessages handles one parent message posted over HTTP. The request's
// Origin header is the message origin; replies are returned instead of pushed.
func (s *Server) ginAPIMessages(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	origin := c.GetHeader("Origin")

	replies := message.NewQueue(origin)
	view := bridge.Mount(s.Store, replies, s.viewOptions(nil))
	defer view.Unmount()
	view.Receive(c.Request.Context(), origin, data)

	out := replies.Messages()
	if out == nil {
		out = []message.Outbound{}
	}
	c.JSON(http.StatusOK, MessagesResponse{Replies: out})
}

func (s *Server) ginAPIState(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.Get())
}

func (s *Server) ginAPIClearState(c *gin.Context) {
	if err := s.Store.Clear(c.Request.Context()); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ginAPIAugment(c *gin.Context) {
	var body AugmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "question required"})
		return
	}
	if s.Augmenter == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "augmenter not configured"})
		return
	}
	c.JSON(http.StatusOK, AugmentResponse{Prompt: s.Augmenter.Augment(c.Request.Context(), body.Question)})
}

func (s *Server) ginAPIOriginalQuestion(c *gin.Context) {
	var body OriginalQuestionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	c.JSON(http.StatusOK, OriginalQuestionResponse{Question: augment.ExtractOriginalQuestion(body.Text)})
}

func (s *Server) ginAPIExportPDF(c *gin.Context) {
	var body ExportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	data, err := s.Exporter.Render(body.Markdown)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.FileName))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) ginAPIRequestUserData(c *gin.Context) {
	c.JSON(http.StatusOK, UserDataRequestResponse{Sent: s.Views.RequestUserData()})
}
