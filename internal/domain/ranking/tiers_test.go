package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

func TestNewTierTable_Validation(t *testing.T) {
	_, err := NewTierTable(nil)
	assert.ErrorIs(t, err, ErrEmptyTierTable)

	_, err = NewTierTable([]TierThreshold{{"Bronze", 50}})
	assert.ErrorIs(t, err, ErrTierTableBase)

	_, err = NewTierTable([]TierThreshold{
		{"Bronze", 0},
		{"Silver", 100},
		{"Gold", 100},
	})
	assert.ErrorIs(t, err, ErrTierTableNotSorted)

	_, err = NewTierTable([]TierThreshold{
		{"Bronze", 0},
		{"Silver", 200},
		{"Gold", 100},
	})
	assert.ErrorIs(t, err, ErrTierTableNotSorted)
}

func TestDefaultTables_Shape(t *testing.T) {
	assert.Equal(t, 18, DefaultCompetitorTiers().Size())
	assert.Equal(t, 8, DefaultGuildTiers().Size())
	assert.Equal(t, TierBronzeIII, DefaultCompetitorTiers().LowestTier())
	assert.Equal(t, GuildTierBronze, DefaultGuildTiers().LowestTier())
}

func TestResolve_Boundaries(t *testing.T) {
	table := DefaultCompetitorTiers()

	tests := []struct {
		points int
		tier   string
	}{
		{0, TierBronzeIII},
		{99, TierBronzeIII},
		{100, TierBronzeII},
		{4999, TierGrandmaster},
		{5000, TierChallenger},
		{1000000, TierChallenger}, // saturates at the top tier
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, table.Resolve(shared.RankPoints(tt.points)), "points=%d", tt.points)
	}

	// Total: negative input resolves to the bottom tier rather than failing.
	assert.Equal(t, TierBronzeIII, table.Resolve(shared.RankPoints(-10)))
}

func TestResolve_Monotonic(t *testing.T) {
	table := DefaultCompetitorTiers()

	// tier(points1) must never outrank tier(points2) when points1 < points2.
	tierIndex := func(name string) int {
		order := []string{
			TierBronzeIII, TierBronzeII, TierBronzeI,
			TierSilverIII, TierSilverII, TierSilverI,
			TierGoldIII, TierGoldII, TierGoldI,
			TierPlatinumIII, TierPlatinumII, TierPlatinumI,
			TierDiamondIII, TierDiamondII, TierDiamondI,
			TierMaster, TierGrandmaster, TierChallenger,
		}
		for i, n := range order {
			if n == name {
				return i
			}
		}
		t.Fatalf("unknown tier %q", name)
		return -1
	}

	prev := -1
	for points := 0; points <= 6000; points += 7 {
		idx := tierIndex(table.Resolve(shared.RankPoints(points)))
		require.GreaterOrEqual(t, idx, prev, "tier regressed at %d points", points)
		prev = idx
	}
}

func TestResolveGuildTier(t *testing.T) {
	table := DefaultGuildTiers()
	assert.Equal(t, GuildTierBronze, table.ResolveGuildTier(shared.XP(0)))
	assert.Equal(t, GuildTierSilver, table.ResolveGuildTier(shared.XP(1000)))
	assert.Equal(t, GuildTierLegendary, table.ResolveGuildTier(shared.XP(999999)))
}
