// internal/models/room_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("1v1")
	require.NoError(t, err)
	assert.Equal(t, ModeOneVsOne, m)
	assert.Equal(t, 2, m.Capacity())

	m, err = ParseMode("3v3")
	require.NoError(t, err)
	assert.Equal(t, ModeThreeVsThree, m)
	assert.Equal(t, 6, m.Capacity())
	assert.Equal(t, "3v3", m.Label())

	_, err = ParseMode("2v2")
	assert.Error(t, err)
}

func TestParseRoleRoundTrip(t *testing.T) {
	for _, label := range []string{"listening", "reading", "writing"} {
		role, err := ParseRole(label)
		require.NoError(t, err)
		assert.Equal(t, label, role.Label())
	}
	_, err := ParseRole("singing")
	assert.Error(t, err)
	assert.Empty(t, RoleNone.Label())
}

func TestParseBattleTypeAndLevel(t *testing.T) {
	for _, label := range []string{"listening", "reading", "writing", "mixed"} {
		_, err := ParseBattleType(label)
		assert.NoError(t, err)
	}
	_, err := ParseBattleType("speaking")
	assert.Error(t, err)

	for _, label := range []string{"basic", "medium", "high"} {
		_, err := ParseLevel(label)
		assert.NoError(t, err)
	}
	_, err = ParseLevel("expert")
	assert.Error(t, err)
}

func TestParseTeam(t *testing.T) {
	team, err := ParseTeam("A")
	require.NoError(t, err)
	assert.Equal(t, TeamA, team)

	_, err = ParseTeam("C")
	assert.Error(t, err)
}

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "waiting", StatusWaiting.Label())
	assert.Equal(t, "playing", StatusPlaying.Label())
	assert.Equal(t, "failed", StatusFailed.Label())
}
