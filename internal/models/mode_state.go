package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ModeVariant is the mode-specific part of a room. Exactly one variant is
// active at a time and it always matches Room.GameMode once a game started.
type ModeVariant interface {
	Mode() GameMode
}

type Classic struct{}

type Silent struct{}

// DoubleAgent carries the second impostor; the first lives in Room.ImpostorID.
type DoubleAgent struct {
	SecondImpostorID string `json:"secondImpostorId"`
}

// Teams splits the table in two with one impostor per side. ImpostorA is
// mirrored into Room.ImpostorID.
type Teams struct {
	TeamA     []string `json:"teamA"`
	TeamB     []string `json:"teamB"`
	ImpostorA string   `json:"teamAImpostor"`
	ImpostorB string   `json:"teamBImpostor"`
}

// Combat names the two defend-only players the vote is restricted to.
type Combat struct {
	Combatants [2]string `json:"combatants"`
}

// SecretRoles keeps room-level state of the secret-roles mode; the roles
// themselves are stored on each player.
type SecretRoles struct {
	PayasoWinner string `json:"payasoWinner,omitempty"`
}

func (Classic) Mode() GameMode     { return ModeClassic }
func (Silent) Mode() GameMode      { return ModeSilent }
func (DoubleAgent) Mode() GameMode { return ModeDoubleAgent }
func (Teams) Mode() GameMode       { return ModeTeams }
func (Combat) Mode() GameMode      { return ModeCombat }
func (SecretRoles) Mode() GameMode { return ModeSecretRoles }

// VariantFor returns the empty variant of a mode.
func VariantFor(m GameMode) ModeVariant {
	switch m {
	case ModeSilent:
		return Silent{}
	case ModeDoubleAgent:
		return DoubleAgent{}
	case ModeTeams:
		return Teams{}
	case ModeCombat:
		return Combat{}
	case ModeSecretRoles:
		return SecretRoles{}
	default:
		return Classic{}
	}
}

// ModeState wraps a ModeVariant so it can be persisted as a tagged JSON object.
// The zero value behaves as Classic.
type ModeState struct {
	v ModeVariant
}

func NewModeState(v ModeVariant) ModeState { return ModeState{v: v} }

func (s ModeState) Variant() ModeVariant {
	if s.v == nil {
		return Classic{}
	}
	return s.v
}

func (s ModeState) Mode() GameMode { return s.Variant().Mode() }

// SecondImpostor returns the second impostor session id for two-impostor modes.
func (s ModeState) SecondImpostor() string {
	switch v := s.v.(type) {
	case DoubleAgent:
		return v.SecondImpostorID
	case Teams:
		return v.ImpostorB
	}
	return ""
}

func (s ModeState) Teams() (Teams, bool) {
	v, ok := s.v.(Teams)
	return v, ok
}

func (s ModeState) Combat() (Combat, bool) {
	v, ok := s.v.(Combat)
	return v, ok
}

func (s ModeState) SecretRoles() (SecretRoles, bool) {
	v, ok := s.v.(SecretRoles)
	return v, ok
}

// IsCombatant reports whether the session is one of the two combatants.
func (s ModeState) IsCombatant(sessionID string) bool {
	c, ok := s.Combat()
	return ok && sessionID != "" && slices.Contains(c.Combatants[:], sessionID)
}

// hiddenFrom blanks every impostor id except sessionID's own.
func (s ModeState) hiddenFrom(sessionID string) ModeState {
	switch v := s.v.(type) {
	case DoubleAgent:
		if v.SecondImpostorID != sessionID {
			v.SecondImpostorID = ""
		}
		return NewModeState(v)
	case Teams:
		if v.ImpostorA != sessionID {
			v.ImpostorA = ""
		}
		if v.ImpostorB != sessionID {
			v.ImpostorB = ""
		}
		return NewModeState(v)
	}
	return s
}

type modeEnvelope struct {
	Mode GameMode        `json:"mode"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s ModeState) MarshalJSON() ([]byte, error) {
	v := s.Variant()
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(modeEnvelope{Mode: v.Mode(), Data: data})
}

func (s *ModeState) UnmarshalJSON(b []byte) error {
	var env modeEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		s.v = VariantFor(env.Mode)
		return nil
	}

	var (
		v   ModeVariant
		err error
	)
	switch env.Mode {
	case ModeClassic, "":
		v = Classic{}
	case ModeSilent:
		v = Silent{}
	case ModeDoubleAgent:
		var d DoubleAgent
		err = json.Unmarshal(env.Data, &d)
		v = d
	case ModeTeams:
		var t Teams
		err = json.Unmarshal(env.Data, &t)
		v = t
	case ModeCombat:
		var c Combat
		err = json.Unmarshal(env.Data, &c)
		v = c
	case ModeSecretRoles:
		var r SecretRoles
		err = json.Unmarshal(env.Data, &r)
		v = r
	default:
		return fmt.Errorf("unknown game mode %q", env.Mode)
	}
	if err != nil {
		return fmt.Errorf("decode %s state: %w", env.Mode, err)
	}
	s.v = v
	return nil
}
