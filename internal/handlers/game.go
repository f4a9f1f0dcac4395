package handlers

import (
	"net/http"

	"github.com/OmarAlex24/impostor-game/internal/models"
	"github.com/OmarAlex24/impostor-game/internal/service"
)

type startGameRequest struct {
	SessionID         string `json:"sessionId"`
	Category          string `json:"category"`
	DiscussionMinutes int    `json:"discussionMinutes"`
	GameMode          string `json:"gameMode"`
}

type resetRequest struct {
	SessionID  string `json:"sessionId"`
	ResetStats bool   `json:"resetStats"`
}

type voteRequest struct {
	TargetSessionID       string `json:"targetSessionId"`
	SecondTargetSessionID string `json:"secondTargetSessionId"`
}

func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	var in startGameRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.SessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	res, err := h.svc.StartGame(r.Context(), roomID, normalizeID(in.SessionID), service.StartGameParams{
		Category:          in.Category,
		DiscussionMinutes: in.DiscussionMinutes,
		GameMode:          models.GameMode(in.GameMode),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) StartVoting(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionBody(w, r)
	if !ok {
		return
	}
	if err := h.svc.StartVoting(r.Context(), roomID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoomHandler) PassTurn(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionBody(w, r)
	if !ok {
		return
	}
	res, err := h.svc.PassTurn(r.Context(), roomID, sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// AutoPassTurn needs no caller identity; any client whose timer ran out may
// call it.
func (h *RoomHandler) AutoPassTurn(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.AutoPassTurn(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) CallToVote(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionBody(w, r)
	if !ok {
		return
	}
	res, err := h.svc.CallToVote(r.Context(), roomID, sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) Results(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionBody(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ProcessVotingResults(r.Context(), roomID, sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) Reset(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	var in resetRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.SessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := h.svc.ResetRoom(r.Context(), roomID, normalizeID(in.SessionID), in.ResetStats); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoomHandler) Vote(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerParam(w, r)
	if !ok {
		return
	}
	var in voteRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if normalizeID(in.TargetSessionID) == "" {
		respondBadRequest(w, "targetSessionId required")
		return
	}
	err := h.svc.Vote(r.Context(), playerID, normalizeID(in.TargetSessionID), normalizeID(in.SecondTargetSessionID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
