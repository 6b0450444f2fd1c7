package server

import (
	"net/http"
	"strings"

	"github.com/safeguard-ai/safeguard/internal/models"
	"github.com/safeguard-ai/safeguard/internal/validator"
)

// chatMessageLimit caps a single user message.
const chatMessageLimit = 2000

type createSessionRequest struct {
	ContractAddress string `json:"contractAddress"`
	Network         string `json:"network"`
}

type sendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Network != "" && !validator.ValidNetwork(validator.Normalize(req.Network)) {
		s.writeError(w, models.NewValidationError("Invalid network. Must be: ethereum, bsc, polygon, or 0g"))
		return
	}
	if req.ContractAddress != "" && !validator.ValidAddress(req.ContractAddress) {
		s.writeError(w, models.NewValidationError("Invalid Ethereum address format"))
		return
	}

	id, err := s.chat.CreateSession(r.Context(), validator.Normalize(req.ContractAddress), models.Network(validator.Normalize(req.Network)))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeSuccess(w, http.StatusCreated, map[string]any{
		"sessionId":       id,
		"contractAddress": req.ContractAddress,
		"network":         req.Network,
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.SessionID == "" {
		s.writeError(w, models.NewValidationError("sessionId and message are required"))
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.writeError(w, models.NewValidationError("message must be a non-empty string"))
		return
	}
	if len(req.Message) > chatMessageLimit {
		s.writeError(w, models.NewValidationError("message too long (max 2000 characters)"))
		return
	}

	reply, count, err := s.chat.SendMessage(r.Context(), req.SessionID, message)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, map[string]any{
		"sessionId":    req.SessionID,
		"reply":        reply,
		"messageCount": count,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	history, err := s.chat.History(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeSuccess(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  history,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if !s.chat.DeleteSession(sessionID) {
		s.writeError(w, models.NewNotFoundError("Chat session not found"))
		return
	}

	s.writeSuccess(w, http.StatusOK, map[string]any{
		"message":   "Chat session deleted",
		"sessionId": sessionID,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.chat.Sessions()
	s.writeSuccess(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
