package handlers

import (
	"net/http"

	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/go-chi/chi/v5"
)

type RoomHandler struct {
	svc *service.RoomService
}

func NewRoomHandler(s *service.RoomService) *RoomHandler { return &RoomHandler{svc: s} }

type createRoomRequest struct {
	HostName  string `json:"hostName"`
	SessionID string `json:"sessionId"`
}

type joinRoomRequest struct {
	Code       string `json:"code"`
	PlayerName string `json:"playerName"`
	SessionID  string `json:"sessionId"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (r sessionRequest) validate() error {
	return validateSessionID(r.SessionID)
}

type kickRequest struct {
	KickerSessionID string `json:"kickerSessionId"`
}

// roomParam reads {roomId} and answers 400 when it is blank.
func roomParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomID(id); err != nil {
		respondBadRequest(w, err.Error())
		return "", false
	}
	return id, true
}

func playerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := normalizeID(chi.URLParam(r, "playerId"))
	if err := validatePlayerID(id); err != nil {
		respondBadRequest(w, err.Error())
		return "", false
	}
	return id, true
}

// sessionBody decodes a {"sessionId"} body for room scoped actions.
func sessionBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in sessionRequest
	if !decodeJSON(w, r, &in) {
		return "", false
	}
	if err := in.validate(); err != nil {
		respondBadRequest(w, err.Error())
		return "", false
	}
	return normalizeID(in.SessionID), true
}

// viewerParam reads the optional ?sessionId= naming who is looking at the
// room.
func viewerParam(r *http.Request) string {
	return normalizeID(r.URL.Query().Get("sessionId"))
}

func (h *RoomHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *RoomHandler) Modes(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"modes": h.svc.Modes(), "roles": h.svc.Roles()})
}

func (h *RoomHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"categories": h.svc.Categories()})
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in createRoomRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.CreateRoom(r.Context(), in.HostName, normalizeID(in.SessionID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var in joinRoomRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if normalizeID(in.Code) == "" {
		respondBadRequest(w, "code required")
		return
	}
	res, err := h.svc.JoinRoom(r.Context(), in.Code, in.PlayerName, normalizeID(in.SessionID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.GetRoomByCodeView(r.Context(), chi.URLParam(r, "code"), viewerParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	room, err := h.svc.GetRoomView(r.Context(), roomID, viewerParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Players(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	players, err := h.svc.GetPlayersView(r.Context(), roomID, viewerParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (h *RoomHandler) Player(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetPlayerBySession(r.Context(), roomID, normalizeID(chi.URLParam(r, "sessionId")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *RoomHandler) ToggleReady(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerParam(w, r)
	if !ok {
		return
	}
	ready, err := h.svc.ToggleReady(r.Context(), playerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"isReady": ready})
}

func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerParam(w, r)
	if !ok {
		return
	}
	var in kickRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := validateSessionID(in.KickerSessionID); err != nil {
		respondBadRequest(w, "kickerSessionId required")
		return
	}
	if err := h.svc.KickPlayer(r.Context(), playerID, normalizeID(in.KickerSessionID)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.LeavePlayer(r.Context(), playerID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
