package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeState_PersistsVariant(t *testing.T) {
	t.Parallel()

	room := Room{
		ID:         "r1",
		ImpostorID: "s1",
		ModeState: NewModeState(Teams{
			TeamA:     []string{"s1", "s2", "s3"},
			TeamB:     []string{"s4", "s5", "s6"},
			ImpostorA: "s1",
			ImpostorB: "s5",
		}),
	}

	b, err := json.Marshal(room)
	require.NoError(t, err)

	var got Room
	require.NoError(t, json.Unmarshal(b, &got))

	teams, ok := got.ModeState.Teams()
	require.True(t, ok)
	assert.Equal(t, ModeTeams, got.ModeState.Mode())
	assert.Equal(t, "s5", teams.ImpostorB)
	assert.Equal(t, []string{"s1", "s5"}, got.ImpostorIDs())
}

func TestModeState_ZeroValueIsClassic(t *testing.T) {
	t.Parallel()

	var s ModeState
	assert.Equal(t, ModeClassic, s.Mode())
	assert.Empty(t, s.SecondImpostor())

	var decoded ModeState
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"combate"}`), &decoded))
	_, ok := decoded.Combat()
	assert.True(t, ok)

	assert.Error(t, json.Unmarshal([]byte(`{"mode":"bogus","data":{}}`), &decoded))
}

func TestRoom_TurnHelpers(t *testing.T) {
	t.Parallel()

	r := Room{TurnOrder: []string{"a", "b"}, CurrentTurnIndex: 1}
	assert.Equal(t, "b", r.CurrentTurn())

	r.CurrentTurnIndex = 2
	assert.Equal(t, "", r.CurrentTurn())

	r.ImpostorID = "a"
	r.ModeState = NewModeState(DoubleAgent{SecondImpostorID: "b"})
	assert.True(t, r.IsImpostor("b"))
	assert.False(t, r.IsImpostor(""))
	assert.False(t, r.IsImpostor("c"))
}

func TestRoomViewFor(t *testing.T) {
	t.Parallel()

	playing := Room{
		Status:      StatusPlaying,
		HostID:      "a",
		CurrentWord: "gato",
		UsedWords:   []string{"perro", "gato"},
		ImpostorID:  "b",
		ModeState:   NewModeState(DoubleAgent{SecondImpostorID: "c"}),
	}

	testCases := []struct {
		description string
		room        Room
		viewer      string
		word        string
		used        []string
		impostors   []string
	}{
		{"innocent sees the word", playing, "a", "gato", []string{"perro", "gato"}, nil},
		{"impostor only sees itself", playing, "b", "", []string{"perro"}, []string{"b"}},
		{"second impostor only sees itself", playing, "c", "", []string{"perro"}, []string{"c"}},
		{"anonymous viewer", playing, "", "", []string{"perro"}, nil},
		{"results are public", func() Room { r := playing; r.Status = StatusResults; return r }(), "", "gato", []string{"perro", "gato"}, []string{"b", "c"}},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()
			v := tc.room.ViewFor(tc.viewer)
			assert.Equal(t, tc.word, v.CurrentWord)
			assert.Equal(t, tc.used, v.UsedWords)
			assert.Equal(t, tc.impostors, v.ImpostorIDs())
			assert.Equal(t, "a", v.HostID)
		})
	}

	v := playing.ViewFor("c")
	assert.Equal(t, "c", v.ModeState.SecondImpostor())
	assert.Equal(t, []string{"perro", "gato"}, playing.UsedWords)
	assert.Equal(t, "b", playing.ImpostorID)
}

func TestRoomViewFor_Teams(t *testing.T) {
	t.Parallel()

	r := Room{
		Status:     StatusVoting,
		ImpostorID: "a1",
		ModeState: NewModeState(Teams{
			TeamA: []string{"a1", "a2"}, TeamB: []string{"b1", "b2"},
			ImpostorA: "a1", ImpostorB: "b1",
		}),
	}
	v := r.ViewFor("b1")
	teams, ok := v.ModeState.Teams()
	require.True(t, ok)
	assert.Empty(t, teams.ImpostorA)
	assert.Equal(t, "b1", teams.ImpostorB)
	assert.Equal(t, []string{"a1", "a2"}, teams.TeamA)
	assert.Empty(t, v.ImpostorID)
	assert.True(t, v.IsImpostor("b1"))
}

func TestPlayerViewFor(t *testing.T) {
	t.Parallel()

	p := Player{SessionID: "a", SecretRole: RoleDetective}
	assert.Equal(t, RoleDetective, p.ViewFor("a", StatusPlaying).SecretRole)
	assert.Empty(t, p.ViewFor("b", StatusPlaying).SecretRole)
	assert.Equal(t, RoleDetective, p.ViewFor("b", StatusResults).SecretRole)
}
