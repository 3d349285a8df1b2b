package handlers

import (
	"encoding/json"
	"net/http"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/chat"
)

// ChatRequest represents the incoming chat message
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the bot reply and the whole transcript
type ChatResponse struct {
	Reply    *chat.Message  `json:"reply,omitempty"`
	Messages []chat.Message `json:"messages"`
}

// Chat handles POST /api/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn() {
		respondError(w, http.StatusUnauthorized, api.MsgSessionExpired)
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp := ChatResponse{}
	reply, ok, err := h.chat.Send(r.Context(), req.Message)
	if api.IsUnauthorized(err) {
		h.dash.Reset()
		respondError(w, http.StatusUnauthorized, api.MsgSessionExpired)
		return
	}
	if ok {
		resp.Reply = &reply
	}
	resp.Messages = h.chat.Messages()
	respondJSON(w, http.StatusOK, resp)
}

// ChatHistory handles GET /api/chat
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn() {
		respondError(w, http.StatusUnauthorized, api.MsgSessionExpired)
		return
	}
	respondJSON(w, http.StatusOK, ChatResponse{Messages: h.chat.Messages()})
}
