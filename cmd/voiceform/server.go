package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tbxark/voiceform/agent"
	"github.com/tbxark/voiceform/speech"
	"github.com/tbxark/voiceform/types"
)

type server struct {
	flow        *agent.Flow
	forms       *types.FormStore
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	mediaDir    string
	logger      *slog.Logger
}

type startRequest struct {
	SessionID string            `json:"session_id" binding:"required"`
	FormID    string            `json:"form_id"`
	Schema    *types.FormSchema `json:"schema"`
}

type turnRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	FormID    string `json:"form_id"`
	UserText  string `json:"user_text" binding:"required"`
}

type turnResponse struct {
	AgentReply string            `json:"agent_reply"`
	Action     string            `json:"action"`
	AudioURL   string            `json:"audio_url,omitempty"`
	FormState  map[string]string `json:"form_state"`
	Progress   types.Progress    `json:"progress"`
	IsComplete bool              `json:"is_complete"`
}

type resetRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (s *server) routes(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	corsCfg := cors.DefaultConfig()
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	corsCfg.AllowCredentials = !corsCfg.AllowAllOrigins
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.handleHealth)
	r.GET("/v1/forms", s.handleListForms)
	r.POST("/v1/form/start", s.handleStart)
	r.POST("/v1/agent/turn", s.handleTurn)
	r.POST("/v1/agent/reset", s.handleReset)
	r.GET("/v1/agent/state/:session_id", s.handleState)
	r.POST("/v1/stt", s.handleSTT)
	r.Static("/media", s.mediaDir)
	return r
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handleListForms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"forms": s.forms.List()})
}

func (s *server) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	form, err := s.resolveForm(req.FormID, req.Schema)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	result, err := s.flow.Start(req.SessionID, form)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrSchema) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) handleTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	formID := req.FormID
	if formID == "" {
		snap, found := s.flow.Info(req.SessionID)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found. Call /v1/form/start first."})
			return
		}
		formID = snap.FormID
	}
	form, found := s.forms.Get(formID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Form %q not found", formID)})
		return
	}

	resp, err := s.flow.Turn(c.Request.Context(), req.SessionID, form, req.UserText)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrSchema) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}

	out := turnResponse{
		AgentReply: resp.Reply,
		Action:     string(resp.Action.Kind()),
		FormState:  resp.FormState,
		Progress:   resp.Progress,
		IsComplete: resp.Complete,
	}
	if audio, synthesized := speech.SynthesizeOrNone(c.Request.Context(), s.synthesizer, resp.Reply); synthesized {
		if url, saveErr := s.saveAudio(req.SessionID, audio); saveErr == nil {
			out.AudioURL = url
		} else {
			s.logger.Warn("save audio failed", "session", req.SessionID, "error", saveErr)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *server) handleReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": s.flow.Reset(req.SessionID)})
}

func (s *server) handleState(c *gin.Context) {
	snap, found := s.flow.Info(c.Param("session_id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	out := gin.H{"session": snap}
	if form, ok := s.forms.Get(snap.FormID); ok {
		out["progress"] = types.ComputeProgress(form, snap.Fields)
		for _, field := range form.OrderedFields() {
			st := snap.Fields[field.Name]
			if st.Status == types.StatusPending || st.Status == types.StatusInvalid {
				out["next_field"] = field.Name
				break
			}
		}
	}
	c.JSON(http.StatusOK, out)
}

// handleSTT transcribes an uploaded audio clip. Transcription failure is
// reported as empty text, matching the turn-time degradation rule.
func (s *server) handleSTT(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"text": ""})
		return
	}
	defer src.Close()
	audio, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"text": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": speech.TranscribeOrEmpty(c.Request.Context(), s.transcriber, audio)})
}

func (s *server) saveAudio(sessionID string, audio speech.Audio) (string, error) {
	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d.wav", sessionID, time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(s.mediaDir, name), audio.Data, 0o644); err != nil {
		return "", err
	}
	return "/media/" + name, nil
}

func (s *server) resolveForm(formID string, schema *types.FormSchema) (*types.FormSchema, error) {
	if schema != nil {
		return s.forms.Add(schema)
	}
	if formID == "" {
		return nil, fmt.Errorf("form_id or schema is required")
	}
	form, found := s.forms.Get(formID)
	if !found {
		return nil, fmt.Errorf("form %q not found", formID)
	}
	return form, nil
}
