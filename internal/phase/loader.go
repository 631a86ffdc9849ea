package phase

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/advisor/internal/domain"
)

// phaseFile is the on-disk calendar document.
type phaseFile struct {
	Phases []phaseEntry `yaml:"phases"`
}

type phaseEntry struct {
	Name                   string   `yaml:"name"`
	Start                  string   `yaml:"start"`
	End                    string   `yaml:"end"`
	MaxZone                string   `yaml:"max_zone"`
	MaxWeeklyVolumeKM      float64  `yaml:"max_weekly_volume_km"`
	MaxMonthlyVolumeKM     float64  `yaml:"max_monthly_volume_km"`
	HRBandLow              float64  `yaml:"hr_band_low"`
	HRBandHigh             float64  `yaml:"hr_band_high"`
	MinStructuralIntegrity *float64 `yaml:"min_structural_integrity,omitempty"`
}

// LoadFile reads a YAML phase calendar and validates it.
func LoadFile(path string) (*Calendar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phase calendar: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Calendar from YAML bytes.
func Parse(raw []byte) (*Calendar, error) {
	var doc phaseFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse phase calendar: %w", err)
	}

	phases := make([]domain.PhaseDefinition, 0, len(doc.Phases))
	for _, entry := range doc.Phases {
		start, err := time.Parse("2006-01-02", entry.Start)
		if err != nil {
			return nil, fmt.Errorf("phase %q: invalid start: %w", entry.Name, err)
		}
		end, err := time.Parse("2006-01-02", entry.End)
		if err != nil {
			return nil, fmt.Errorf("phase %q: invalid end: %w", entry.Name, err)
		}
		zone, err := domain.ParseZone(entry.MaxZone)
		if err != nil {
			return nil, fmt.Errorf("phase %q: %w", entry.Name, err)
		}
		phases = append(phases, domain.PhaseDefinition{
			Name:                   entry.Name,
			Start:                  start.UTC(),
			End:                    end.UTC(),
			MaxZone:                zone,
			MaxWeeklyVolume:        entry.MaxWeeklyVolumeKM,
			MaxMonthlyVolume:       entry.MaxMonthlyVolumeKM,
			HRBandLow:              entry.HRBandLow,
			HRBandHigh:             entry.HRBandHigh,
			MinStructuralIntegrity: entry.MinStructuralIntegrity,
		})
	}

	return NewCalendar(phases)
}
