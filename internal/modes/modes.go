// Package modes is the static registry of game mode rules.
package modes

import (
	"slices"

	"github.com/OmarAlex24/impostor-game/internal/models"
)

type Features struct {
	ChatEnabled   bool `json:"chatEnabled"`
	TeamsEnabled  bool `json:"teamsEnabled"`
	CombatEnabled bool `json:"combatEnabled"`
	EmojiOnly     bool `json:"emojiOnly"`
}

// Config describes one game mode.
type Config struct {
	ID           models.GameMode     `json:"id"`
	Name         string              `json:"name"`
	Emoji        string              `json:"emoji"`
	Description  string              `json:"description"`
	MinPlayers   int                 `json:"minPlayers"`
	MaxImpostors int                 `json:"maxImpostors"`
	SpecialRoles []models.SecretRole `json:"specialRoles,omitempty"`
	Features     Features            `json:"features"`
}

// RoleSequence is the order secret roles are handed to non-impostors.
var RoleSequence = []models.SecretRole{
	models.RoleDetective,
	models.RoleFiscal,
	models.RolePayaso,
	models.RoleDoubleVoter,
	models.RoleGhost,
}

// SilentEmojis are the only reactions accepted in silent mode.
var SilentEmojis = []string{"👍", "👎", "🤔", "😱", "🤥", "👀", "❌", "✅", "🎯", "💀", "😈", "🤫"}

type RoleInfo struct {
	Role        models.SecretRole `json:"role"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
}

var roleInfo = map[models.SecretRole]RoleInfo{
	models.RoleDetective:   {models.RoleDetective, "Detective", "Puede investigar a un jugador una vez por partida"},
	models.RoleFiscal:      {models.RoleFiscal, "Fiscal", "Puede forzar una votación anticipada una vez"},
	models.RolePayaso:      {models.RolePayaso, "Payaso", "Gana si lo expulsan por votación"},
	models.RoleDoubleVoter: {models.RoleDoubleVoter, "Votante Doble", "Su voto cuenta doble"},
	models.RoleGhost:       {models.RoleGhost, "Fantasma", "Al ser eliminado puede dejar una pista"},
	models.RoleNone:        {models.RoleNone, "Ciudadano", "Sin habilidad especial"},
}

var registry = []Config{
	{
		ID:           models.ModeClassic,
		Name:         "Clásico",
		Emoji:        "🎭",
		Description:  "Un impostor intenta pasar desapercibido entre los demás",
		MinPlayers:   3,
		MaxImpostors: 1,
		Features:     Features{ChatEnabled: true},
	},
	{
		ID:           models.ModeDoubleAgent,
		Name:         "Doble Agente",
		Emoji:        "👥",
		Description:  "Dos impostores que no se conocen entre sí",
		MinPlayers:   5,
		MaxImpostors: 2,
		Features:     Features{ChatEnabled: true},
	},
	{
		ID:           models.ModeSilent,
		Name:         "Silencio",
		Emoji:        "🤫",
		Description:  "Sin chat, solo se permiten emojis",
		MinPlayers:   3,
		MaxImpostors: 1,
		Features:     Features{EmojiOnly: true},
	},
	{
		ID:           models.ModeSecretRoles,
		Name:         "Roles Secretos",
		Emoji:        "🕵️",
		Description:  "Los inocentes reciben roles con habilidades especiales",
		MinPlayers:   5,
		MaxImpostors: 1,
		SpecialRoles: RoleSequence,
		Features:     Features{ChatEnabled: true},
	},
	{
		ID:           models.ModeTeams,
		Name:         "Equipo vs Equipo",
		Emoji:        "⚔️",
		Description:  "Dos equipos, cada uno con su propio impostor",
		MinPlayers:   6,
		MaxImpostors: 2,
		Features:     Features{ChatEnabled: true, TeamsEnabled: true},
	},
	{
		ID:           models.ModeCombat,
		Name:         "Combate",
		Emoji:        "🥊",
		Description:  "Solo dos combatientes pueden ser votados",
		MinPlayers:   4,
		MaxImpostors: 1,
		Features:     Features{ChatEnabled: true, CombatEnabled: true},
	},
}

// Lookup returns the config for id and whether it is a known mode.
func Lookup(id models.GameMode) (Config, bool) {
	for _, c := range registry {
		if c.ID == id {
			return c, true
		}
	}
	return Config{}, false
}

// Get returns the config for id, falling back to classic for unknown ids.
func Get(id models.GameMode) Config {
	if c, ok := Lookup(id); ok {
		return c
	}
	return registry[0]
}

// All returns every mode in display order.
func All() []Config {
	return slices.Clone(registry)
}

func Role(r models.SecretRole) RoleInfo {
	if info, ok := roleInfo[r]; ok {
		return info
	}
	return roleInfo[models.RoleNone]
}

// Roles describes every secret role in dealing order, ending with the
// plain citizen.
func Roles() []RoleInfo {
	out := make([]RoleInfo, 0, len(RoleSequence)+1)
	for _, r := range RoleSequence {
		out = append(out, Role(r))
	}
	return append(out, Role(models.RoleNone))
}

func IsSilentEmoji(e string) bool {
	return slices.Contains(SilentEmojis, e)
}
