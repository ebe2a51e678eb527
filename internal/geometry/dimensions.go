package geometry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mh-salari/psa-data-quality/internal/model"
)

// Dimensions are the physical width and height of the reference target the
// participant was looking at, in millimeters.
type Dimensions struct {
	WidthMM  float64 `yaml:"width_mm"`
	HeightMM float64 `yaml:"height_mm"`
}

// DeviceRule resolves target dimensions for one eye tracker. Lookup order:
// participant override, condition override, device default.
type DeviceRule struct {
	Default              *Dimensions           `yaml:"default,omitempty"`
	ConditionOverrides   map[string]Dimensions `yaml:"condition_overrides,omitempty"`
	ParticipantOverrides []ParticipantOverride `yaml:"participant_overrides,omitempty"`
}

// ParticipantOverride pins specific participants (optionally restricted to
// one condition) to different target dimensions. These entries record
// physical lab-setup facts; they are curated data, never inferred.
type ParticipantOverride struct {
	Participants []string   `yaml:"participants"`
	Condition    string     `yaml:"condition,omitempty"`
	Dimensions   Dimensions `yaml:"dimensions"`
}

// TargetDimensions is the versioned lookup table mapping
// (device, participant, condition) to physical target dimensions.
type TargetDimensions struct {
	Version string                `yaml:"version"`
	Default Dimensions            `yaml:"default"`
	Devices map[string]DeviceRule `yaml:"devices"`
}

// Physical targets used in the recordings.
var (
	standardTarget = Dimensions{WidthMM: 346.31, HeightMM: 137.78}
	largeTarget    = Dimensions{WidthMM: 476.64, HeightMM: 268.11}
)

// DefaultTargetDimensions returns the lab's recorded setup: the standard
// target everywhere, except the large target for five Pupil Core
// participants in the bright condition and for Tobii Glasses 2 in every
// condition but dark.
func DefaultTargetDimensions() *TargetDimensions {
	return &TargetDimensions{
		Version: "2024-05",
		Default: standardTarget,
		Devices: map[string]DeviceRule{
			model.PupilCore: {
				ParticipantOverrides: []ParticipantOverride{
					{
						Participants: []string{"319", "460", "503", "772", "844"},
						Condition:    model.ConditionBright,
						Dimensions:   largeTarget,
					},
				},
			},
			model.TobiiGlasses2: {
				Default: &largeTarget,
				ConditionOverrides: map[string]Dimensions{
					model.ConditionDark: standardTarget,
				},
			},
		},
	}
}

// LoadTargetDimensions reads a dimension table from a YAML file.
func LoadTargetDimensions(path string) (*TargetDimensions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target dimensions: %w", err)
	}
	var table TargetDimensions
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse target dimensions: %w", err)
	}
	return &table, nil
}

// Lookup resolves the physical target dimensions for one sample.
func (t *TargetDimensions) Lookup(device, participantID, condition string) Dimensions {
	rule, ok := t.Devices[device]
	if !ok {
		return t.Default
	}

	for _, o := range rule.ParticipantOverrides {
		if o.Condition != "" && o.Condition != condition {
			continue
		}
		for _, p := range o.Participants {
			if p == participantID {
				return o.Dimensions
			}
		}
	}

	if dims, ok := rule.ConditionOverrides[condition]; ok {
		return dims
	}
	if rule.Default != nil {
		return *rule.Default
	}
	return t.Default
}
