package handlers

import (
	"net/http"
)

type investigateRequest struct {
	SessionID       string `json:"sessionId"`
	TargetSessionID string `json:"targetSessionId"`
}

type ghostClueRequest struct {
	SessionID string `json:"sessionId"`
	Clue      string `json:"clue"`
}

type emojiRequest struct {
	SessionID string `json:"sessionId"`
	Emoji     string `json:"emoji"`
}

type spectatorMessageRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// Investigate answers the detective only; the result is never broadcast.
func (h *RoomHandler) Investigate(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	var in investigateRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.SessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if normalizeID(in.TargetSessionID) == "" {
		respondBadRequest(w, "targetSessionId required")
		return
	}
	isImpostor, err := h.svc.DetectiveInvestigate(r.Context(), roomID, normalizeID(in.SessionID), normalizeID(in.TargetSessionID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"isImpostor": isImpostor})
}

func (h *RoomHandler) FiscalCallVote(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionBody(w, r)
	if !ok {
		return
	}
	if err := h.svc.FiscalCallVote(r.Context(), roomID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoomHandler) GhostClue(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	var in ghostClueRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.SessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := h.svc.SetGhostClue(r.Context(), roomID, normalizeID(in.SessionID), in.Clue); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoomHandler) SendEmoji(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	var in emojiRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.SessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	msg, err := h.svc.SendEmoji(r.Context(), roomID, normalizeID(in.SessionID), in.Emoji)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (h *RoomHandler) Emojis(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	msgs, err := h.svc.GetEmojis(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *RoomHandler) SendSpectatorMessage(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	var in spectatorMessageRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.SessionID); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	msg, err := h.svc.SendSpectatorMessage(r.Context(), roomID, normalizeID(in.SessionID), in.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (h *RoomHandler) SpectatorMessages(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	msgs, err := h.svc.GetSpectatorMessages(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}
