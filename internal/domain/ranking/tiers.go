// Package ranking contains the rank-point engine: competitor profiles,
// tier threshold tables, and leaderboard ordering.
// This is a pure domain layer with zero external dependencies.
package ranking

import (
	"errors"
	"fmt"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Domain errors for ranking package.
var (
	ErrEmptyTierTable     = errors.New("ranking: tier table cannot be empty")
	ErrTierTableNotSorted = errors.New("ranking: tier thresholds must be strictly increasing")
	ErrTierTableBase      = errors.New("ranking: lowest tier threshold must be zero")
)

// TierThreshold maps a tier name to the minimum points required to hold it.
type TierThreshold struct {
	Name      string
	MinPoints int
}

// TierTable is a fixed, strictly increasing threshold table. Resolution is a
// pure, total, monotonic function over non-negative point values, saturating
// at the top tier. A malformed table is a configuration error surfaced at
// startup, never per call.
type TierTable struct {
	thresholds []TierThreshold
}

// NewTierTable validates and builds a tier table. The first threshold must be
// zero so that every non-negative point value resolves to some tier.
func NewTierTable(thresholds []TierThreshold) (*TierTable, error) {
	if len(thresholds) == 0 {
		return nil, ErrEmptyTierTable
	}
	if thresholds[0].MinPoints != 0 {
		return nil, ErrTierTableBase
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i].MinPoints <= thresholds[i-1].MinPoints {
			return nil, fmt.Errorf("%w: %q (%d) after %q (%d)",
				ErrTierTableNotSorted,
				thresholds[i].Name, thresholds[i].MinPoints,
				thresholds[i-1].Name, thresholds[i-1].MinPoints)
		}
	}

	table := make([]TierThreshold, len(thresholds))
	copy(table, thresholds)
	return &TierTable{thresholds: table}, nil
}

// MustNewTierTable builds a tier table and panics on a malformed one.
// Intended for the package defaults, which are validated by tests.
func MustNewTierTable(thresholds []TierThreshold) *TierTable {
	table, err := NewTierTable(thresholds)
	if err != nil {
		panic(err)
	}
	return table
}

// Resolve returns the highest tier whose threshold is ≤ points.
// Negative input resolves to the lowest tier, keeping the function total.
func (t *TierTable) Resolve(points shared.RankPoints) string {
	p := points.Int()
	if p < 0 {
		p = 0
	}
	current := t.thresholds[0].Name
	for _, th := range t.thresholds {
		if p >= th.MinPoints {
			current = th.Name
		} else {
			break
		}
	}
	return current
}

// Size returns the number of tiers in the table.
func (t *TierTable) Size() int {
	return len(t.thresholds)
}

// LowestTier returns the name of the bottom tier.
func (t *TierTable) LowestTier() string {
	return t.thresholds[0].Name
}

// Competitor tier names, Bronze III lowest through Challenger highest.
const (
	TierBronzeIII   = "Bronze III"
	TierBronzeII    = "Bronze II"
	TierBronzeI     = "Bronze I"
	TierSilverIII   = "Silver III"
	TierSilverII    = "Silver II"
	TierSilverI     = "Silver I"
	TierGoldIII     = "Gold III"
	TierGoldII      = "Gold II"
	TierGoldI       = "Gold I"
	TierPlatinumIII = "Platinum III"
	TierPlatinumII  = "Platinum II"
	TierPlatinumI   = "Platinum I"
	TierDiamondIII  = "Diamond III"
	TierDiamondII   = "Diamond II"
	TierDiamondI    = "Diamond I"
	TierMaster      = "Master"
	TierGrandmaster = "Grandmaster"
	TierChallenger  = "Challenger"
)

// DefaultCompetitorTiers returns the 18-tier competitor table. The exact
// thresholds are configuration; deployments may supply their own table.
func DefaultCompetitorTiers() *TierTable {
	return MustNewTierTable([]TierThreshold{
		{TierBronzeIII, 0},
		{TierBronzeII, 100},
		{TierBronzeI, 200},
		{TierSilverIII, 350},
		{TierSilverII, 500},
		{TierSilverI, 700},
		{TierGoldIII, 900},
		{TierGoldII, 1150},
		{TierGoldI, 1400},
		{TierPlatinumIII, 1700},
		{TierPlatinumII, 2000},
		{TierPlatinumI, 2350},
		{TierDiamondIII, 2700},
		{TierDiamondII, 3100},
		{TierDiamondI, 3500},
		{TierMaster, 4000},
		{TierGrandmaster, 4500},
		{TierChallenger, 5000},
	})
}

// Guild tier names, a coarser 8-tier ladder over accumulated guild XP.
const (
	GuildTierBronze      = "Bronze"
	GuildTierSilver      = "Silver"
	GuildTierGold        = "Gold"
	GuildTierPlatinum    = "Platinum"
	GuildTierDiamond     = "Diamond"
	GuildTierMaster      = "Master"
	GuildTierGrandmaster = "Grandmaster"
	GuildTierLegendary   = "Legendary"
)

// DefaultGuildTiers returns the 8-tier guild table over accumulated XP.
func DefaultGuildTiers() *TierTable {
	return MustNewTierTable([]TierThreshold{
		{GuildTierBronze, 0},
		{GuildTierSilver, 1000},
		{GuildTierGold, 5000},
		{GuildTierPlatinum, 15000},
		{GuildTierDiamond, 30000},
		{GuildTierMaster, 60000},
		{GuildTierGrandmaster, 100000},
		{GuildTierLegendary, 200000},
	})
}

// ResolveGuildTier maps guild XP onto the guild table.
func (t *TierTable) ResolveGuildTier(xp shared.XP) string {
	return t.Resolve(shared.RankPoints(xp.Int()))
}
