package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
	"github.com/tridinhbui/finpartner-ai/internal/controller"
	"github.com/tridinhbui/finpartner-ai/internal/storage/threadsync"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
	"github.com/tridinhbui/finpartner-ai/internal/upload"
)

const maxUploadBytes = 20 << 20

// turnView decorates a turn with the flag render surfaces use to show
// the "view in workspace" affordance.
type turnView struct {
	thread.ConversationTurn
	HasLinkedArtifact bool `json:"hasLinkedArtifact"`
}

// activeThreadView is the full projection of the active thread.
type activeThreadView struct {
	ID                 string                       `json:"id"`
	Title              string                       `json:"title"`
	Turns              []turnView                   `json:"messages"`
	CreatedAt          time.Time                    `json:"createdAt"`
	UpdatedAt          time.Time                    `json:"updatedAt"`
	Workspace          thread.WorkspaceState        `json:"workspace"`
	HighlightedMetrics []artifact.HighlightedMetric `json:"highlightedNumbers,omitempty"`
	DocumentRef        string                       `json:"documentRef,omitempty"`
	Sending            bool                         `json:"sending"`
}

func (s *Server) activeView() (activeThreadView, bool) {
	active, ok := s.ctrl.SnapshotActive()
	if !ok {
		return activeThreadView{}, false
	}

	turns := make([]turnView, 0, len(active.Turns))
	for _, turn := range active.Turns {
		turns = append(turns, turnView{
			ConversationTurn:  turn,
			HasLinkedArtifact: turn.HasLinkedArtifact(),
		})
	}

	return activeThreadView{
		ID:                 active.ID,
		Title:              active.Title,
		Turns:              turns,
		CreatedAt:          active.CreatedAt,
		UpdatedAt:          active.UpdatedAt,
		Workspace:          active.Workspace,
		HighlightedMetrics: active.HighlightedMetrics,
		DocumentRef:        active.Workspace.Document.EphemeralRef,
		Sending:            s.ctrl.Sending(),
	}, true
}

func (s *Server) handleListThreads(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: s.ctrl.SnapshotThreads()})
}

func (s *Server) handleCreateThread(c *gin.Context) {
	created := s.ctrl.CreateThread()
	s.metrics.ThreadsCreated.Inc()
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    gin.H{"id": created.ID, "title": created.Title},
	})
}

func (s *Server) handleActiveThread(c *gin.Context) {
	view, ok := s.activeView()
	if !ok {
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "no active thread"})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: view})
}

func (s *Server) handleSelectThread(c *gin.Context) {
	s.ctrl.SelectThread(c.Param("id"))
	view, _ := s.activeView()
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: view})
}

func (s *Server) handleRenameThread(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "title is required"})
		return
	}
	s.ctrl.RenameThread(c.Param("id"), req.Title)
	c.JSON(http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleDeleteThread(c *gin.Context) {
	s.ctrl.DeleteThread(c.Param("id"))
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: s.ctrl.SnapshotThreads()})
}

func (s *Server) handleSend(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	err := s.ctrl.Send(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, controller.ErrSendInFlight):
		s.metrics.SendsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusConflict, APIResponse{Success: false, Error: "a message is already in flight"})
		return
	case errors.Is(err, controller.ErrEmptySend):
		s.metrics.SendsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "nothing to send"})
		return
	case errors.Is(err, controller.ErrNoActiveThread):
		s.metrics.SendsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusConflict, APIResponse{Success: false, Error: "no active thread"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: err.Error()})
		return
	}

	// Transport faults surface in-thread as a flagged turn, not as a
	// request error; classify the outcome from the thread itself.
	view, _ := s.activeView()
	outcome := "delivered"
	if n := len(view.Turns); n > 0 && view.Turns[n-1].IsFault {
		outcome = "faulted"
	}
	s.metrics.SendsTotal.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: view})
}

func (s *Server) handleSetTab(c *gin.Context) {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	tab := thread.Tab(req.Tab)
	if !tab.Valid() {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("unknown tab %q", req.Tab)})
		return
	}
	s.ctrl.SetActiveTab(tab)
	c.JSON(http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleDocument(c *gin.Context) {
	ref := c.Param("ref")
	raw, ok := s.ctrl.ResolveDocument(ref)
	if !ok {
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "document handle not found"})
		return
	}

	mimeType := "application/octet-stream"
	if active, ok := s.ctrl.SnapshotActive(); ok && active.Workspace.Document.EphemeralRef == ref {
		if m := active.Workspace.Document.MimeType; m != "" {
			mimeType = m
		}
	}
	c.Data(http.StatusOK, mimeType, raw)
}

func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "file field is required"})
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "read upload failed"})
		return
	}
	if len(raw) > maxUploadBytes {
		s.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusRequestEntityTooLarge, APIResponse{Success: false, Error: "file too large"})
		return
	}

	if err := s.ctrl.StageUpload(header.Filename, raw, header.Header.Get("Content-Type")); err != nil {
		if errors.Is(err, upload.ErrUnsupportedType) {
			s.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnsupportedMediaType, APIResponse{Success: false, Error: "only PDF, image, and spreadsheet files are supported"})
			return
		}
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: err.Error()})
		return
	}

	s.metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	view, _ := s.activeView()
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: view})
}

func (s *Server) handleClearUpload(c *gin.Context) {
	s.ctrl.ClearAttachment()
	c.JSON(http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleGetSession(c *gin.Context) {
	profile := s.ctrl.Profile()
	if profile == nil {
		c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"authenticated": false}})
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    gin.H{"authenticated": true, "profile": profile},
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var profile threadsync.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if profile.Email == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "email is required"})
		return
	}

	s.ctrl.Login(c.Request.Context(), profile)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"profile": profile}})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.ctrl.Logout()
	c.JSON(http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleGetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"theme": s.ctrl.Theme()}})
}

func (s *Server) handleSetTheme(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.Theme != "light" && req.Theme != "dark" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("unknown theme %q", req.Theme)})
		return
	}
	s.ctrl.SetTheme(req.Theme)
	c.JSON(http.StatusOK, APIResponse{Success: true})
}
