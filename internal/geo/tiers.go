// Package geo classifies Turkish cities and regions into market tiers
// for geographic scoring and location-based adjustments.
package geo

import (
	"strings"

	"github.com/yolwise/leadscore-cli/internal/turkish"
)

// Market tier constants.
const (
	TierOne        = "tier_1"
	TierTwo        = "tier_2"
	TierThree      = "tier_3"
	TierIndustrial = "industrial"
	TierOther      = "other"
)

// Tier membership, folded once at init. Substring matching lets compound
// values like "İstanbul / Kadıköy" or "Gebze OSB" resolve.
var (
	tierOneCities   = turkish.FoldAll([]string{"istanbul", "ankara", "izmir"})
	tierTwoCities   = turkish.FoldAll([]string{"bursa", "antalya", "gaziantep", "konya", "adana", "mersin", "diyarbakır", "kayseri"})
	tierThreeCities = turkish.FoldAll([]string{"eskişehir", "denizli", "samsun", "malatya", "erzurum", "van", "batman", "şanlıurfa"})
	industrialZones = turkish.FoldAll([]string{"kocaeli", "tekirdağ", "gebze", "sakarya", "çorlu", "manisa"})
)

// TierFor returns the market tier for a free-text city or region value.
// Rules, checked in order:
//   - tier_1: Istanbul, Ankara, Izmir
//   - tier_2: major Anatolian cities
//   - tier_3: regional centers
//   - industrial: manufacturing corridor around the Marmara basin
//   - other: anything else, including empty input
func TierFor(location string) string {
	loc := turkish.Fold(location)
	if loc == "" {
		return TierOther
	}
	switch {
	case containsAny(loc, tierOneCities):
		return TierOne
	case containsAny(loc, tierTwoCities):
		return TierTwo
	case containsAny(loc, tierThreeCities):
		return TierThree
	case containsAny(loc, industrialZones):
		return TierIndustrial
	default:
		return TierOther
	}
}

// AnyTierOne reports whether any of the values resolves to tier_1.
func AnyTierOne(locations ...string) bool {
	for _, loc := range locations {
		if TierFor(loc) == TierOne {
			return true
		}
	}
	return false
}

func containsAny(loc string, cities []string) bool {
	for _, c := range cities {
		if strings.Contains(loc, c) {
			return true
		}
	}
	return false
}
