package domain

import "fmt"

// Zone is an intensity zone. Zones form a fixed total order used when
// capping a workout against a phase ceiling.
type Zone int

const (
	ZoneRecovery Zone = iota + 1
	ZoneEndurance
	ZoneTempo
	ZoneThreshold
	ZoneVO2Max
)

var zoneNames = map[Zone]string{
	ZoneRecovery:  "recovery",
	ZoneEndurance: "endurance",
	ZoneTempo:     "tempo",
	ZoneThreshold: "threshold",
	ZoneVO2Max:    "vo2max",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("zone(%d)", int(z))
}

// Valid reports whether z is a known zone.
func (z Zone) Valid() bool {
	_, ok := zoneNames[z]
	return ok
}

// ParseZone maps a zone name to its Zone value.
func ParseZone(name string) (Zone, error) {
	for z, n := range zoneNames {
		if n == name {
			return z, nil
		}
	}
	return 0, fmt.Errorf("unknown intensity zone %q", name)
}

// MinZone returns the lower of two zones. Capping a workout always picks
// min(suggested, ceiling), never the reverse.
func MinZone(a, b Zone) Zone {
	if a < b {
		return a
	}
	return b
}

// TonnageTier classifies strength-training intensity. The ordering is
// significant: higher tiers buy a larger running-volume envelope.
type TonnageTier int

const (
	TierNone TonnageTier = iota
	TierMaintenance
	TierHypertrophy
	TierStrength
	TierPower
	TierExplosive
)

var tierNames = map[TonnageTier]string{
	TierNone:        "none",
	TierMaintenance: "maintenance",
	TierHypertrophy: "hypertrophy",
	TierStrength:    "strength",
	TierPower:       "power",
	TierExplosive:   "explosive",
}

func (t TonnageTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Multiplier returns the envelope multiplier for the tier.
func (t TonnageTier) Multiplier() float64 {
	if t < TierNone || t > TierExplosive {
		return 0
	}
	return float64(t)
}

// ParseTonnageTier maps a tier name to its TonnageTier value.
func ParseTonnageTier(name string) (TonnageTier, error) {
	if name == "" {
		return TierNone, nil
	}
	for t, n := range tierNames {
		if n == name {
			return t, nil
		}
	}
	return TierNone, fmt.Errorf("unknown tonnage tier %q", name)
}
