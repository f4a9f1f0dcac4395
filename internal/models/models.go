// Package models defines the records persisted for a game room.
package models

import (
	"slices"
	"time"
)

// RoomStatus is the phase of the room state machine.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusPlaying RoomStatus = "playing"
	StatusVoting  RoomStatus = "voting"
	StatusResults RoomStatus = "results"
)

// GameMode identifies one of the selectable rule variants.
type GameMode string

const (
	ModeClassic     GameMode = "clasico"
	ModeDoubleAgent GameMode = "doble_agente"
	ModeSilent      GameMode = "silencio"
	ModeSecretRoles GameMode = "roles_secretos"
	ModeTeams       GameMode = "team_vs_team"
	ModeCombat      GameMode = "combate"
)

// SecretRole is the hidden capability handed out in secret-roles mode.
type SecretRole string

const (
	RoleNone        SecretRole = "none"
	RoleDetective   SecretRole = "detective"
	RoleFiscal      SecretRole = "fiscal"
	RolePayaso      SecretRole = "payaso"
	RoleDoubleVoter SecretRole = "doble_votante"
	RoleGhost       SecretRole = "fantasma"
)

type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

// Winner records how a finished game ended.
type Winner string

const (
	WinnerNone      Winner = ""
	WinnerInnocents Winner = "innocents"
	WinnerImpostors Winner = "impostors"
	WinnerPayaso    Winner = "payaso"
)

// Room is the shared state of one game session.
type Room struct {
	ID       string     `json:"id"`
	Code     string     `json:"code"`
	HostID   string     `json:"hostId"` // session id of the host
	Status   RoomStatus `json:"status"`
	GameMode GameMode   `json:"gameMode"`

	Category    string   `json:"category,omitempty"`
	CurrentWord string   `json:"currentWord,omitempty"`
	UsedWords   []string `json:"usedWords"`

	ImpostorID string    `json:"impostorId,omitempty"`
	ModeState  ModeState `json:"modeState"`

	TurnOrder            []string  `json:"turnOrder"`
	CurrentTurnIndex     int       `json:"currentTurnIndex"`
	RoundNumber          int       `json:"roundNumber"`
	TotalRoundsPerVoting int       `json:"totalRoundsPerVoting"`
	TurnStartTime        time.Time `json:"turnStartTime"`
	TurnDurationSeconds  int       `json:"turnDurationSeconds"`

	DiscussionMinutes int       `json:"discussionMinutes"`
	DiscussionEndTime time.Time `json:"discussionEndTime"`
	VotingEndTime     time.Time `json:"votingEndTime"`
	CallToVoteBy      []string  `json:"callToVoteBy"`

	Winner         Winner    `json:"winner,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// ImpostorIDs returns the primary impostor followed by the second one, if the
// mode has one.
func (r *Room) ImpostorIDs() []string {
	var ids []string
	if r.ImpostorID != "" {
		ids = append(ids, r.ImpostorID)
	}
	if second := r.ModeState.SecondImpostor(); second != "" {
		ids = append(ids, second)
	}
	return ids
}

func (r *Room) IsImpostor(sessionID string) bool {
	return sessionID != "" && slices.Contains(r.ImpostorIDs(), sessionID)
}

// CurrentTurn returns the session id whose turn it is, or "" if no turn order
// is set.
func (r *Room) CurrentTurn() string {
	if r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.TurnOrder) {
		return ""
	}
	return r.TurnOrder[r.CurrentTurnIndex]
}

// TurnDeadline is the instant the active turn expires.
func (r *Room) TurnDeadline() time.Time {
	return r.TurnStartTime.Add(time.Duration(r.TurnDurationSeconds) * time.Second)
}

// ViewFor returns the room as sessionID may see it. While a game runs the
// impostors are only revealed to themselves, and the word is withheld from
// impostors and from an empty session. Waiting rooms and results are whole.
func (r *Room) ViewFor(sessionID string) Room {
	v := *r
	if r.Status != StatusPlaying && r.Status != StatusVoting {
		return v
	}
	if v.ImpostorID != sessionID {
		v.ImpostorID = ""
	}
	v.ModeState = r.ModeState.hiddenFrom(sessionID)
	if sessionID == "" || r.IsImpostor(sessionID) {
		v.CurrentWord = ""
		v.UsedWords = slices.DeleteFunc(slices.Clone(r.UsedWords), func(w string) bool { return w == r.CurrentWord })
	}
	return v
}

// PlayerStats survive across games unless the room is reset with stats.
type PlayerStats struct {
	Points          int `json:"points"`
	CorrectVotes    int `json:"correctVotes"`
	TimesAsImpostor int `json:"timesAsImpostor"`
	ImpostorWins    int `json:"impostorWins"`
	SurvivedRounds  int `json:"survivedRounds"`
}

// Player is one session seated in a room.
type Player struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"roomId"`
	SessionID    string    `json:"sessionId"`
	Name         string    `json:"name"`
	IsHost       bool      `json:"isHost"`
	IsReady      bool      `json:"isReady"`
	IsEliminated bool      `json:"isEliminated"`
	JoinedAt     time.Time `json:"joinedAt"`

	VotedFor   string `json:"votedFor,omitempty"`
	SecondVote string `json:"secondVote,omitempty"`

	Stats PlayerStats `json:"stats"`

	SecretRole     SecretRole `json:"secretRole"`
	HasUsedAbility bool       `json:"hasUsedAbility"`
	GhostClue      string     `json:"ghostClue,omitempty"`
	Team           Team       `json:"team,omitempty"`
}

// ViewFor hides the secret role from everyone but its holder until the
// results are out.
func (p *Player) ViewFor(sessionID string, status RoomStatus) Player {
	v := *p
	if status != StatusResults && p.SessionID != sessionID {
		v.SecretRole = ""
	}
	return v
}

// ClearRound drops everything a player carries only for the current cycle.
func (p *Player) ClearRound() {
	p.VotedFor = ""
	p.SecondVote = ""
	p.HasUsedAbility = false
	p.GhostClue = ""
}

// Message is an append-only chat or emoji event.
type Message struct {
	ID              string    `json:"id"`
	RoomID          string    `json:"roomId"`
	SenderSessionID string    `json:"senderSessionId"`
	SenderName      string    `json:"senderName"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	IsSpectatorChat bool      `json:"isSpectatorChat"`
	IsEmoji         bool      `json:"isEmoji"`
}
