package rss

import (
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// PresetConservative is the name of Conservative parameter set
	PresetConservative = "conservative"
	// PresetAggressive is the name of Aggressive parameter set
	PresetAggressive = "aggressive"
)

var validate = validator.New()

// Params is the set of RSS constants. Accelerations are in m/s^2, reaction time in seconds, Mu in meters.
type Params struct {
	Name string `yaml:"-"`

	// Response time of the rear (ego) vehicle
	ReactionTime float64 `yaml:"reaction_time" validate:"gt=0"`
	// Maximum longitudinal acceleration during response time
	MaxAccelLong float64 `yaml:"max_accel_long" validate:"gt=0"`
	// Minimum braking the rear vehicle is guaranteed to apply
	MinBrakeLong float64 `yaml:"min_brake_long" validate:"gt=0"`
	// Maximum braking the front vehicle may apply
	MaxBrakeLong float64 `yaml:"max_brake_long" validate:"gt=0,gtefield=MinBrakeLong"`

	// Minimum braking of a vehicle driving in its correct lane (opposite direction case)
	MinBrakeLongCorrected float64 `yaml:"min_brake_long_corrected" validate:"gt=0"`
	MinBrakeLat           float64 `yaml:"min_brake_lat" validate:"gt=0"`
	MaxAccelLat           float64 `yaml:"max_accel_lat" validate:"gt=0"`

	// Lateral fluctuation margin
	Mu float64 `yaml:"mu" validate:"gte=0"`
}

// Conservative returns parameter set with long reaction time and cautious braking assumptions
func Conservative() Params {
	return Params{
		Name:                  PresetConservative,
		ReactionTime:          1.94,
		MaxAccelLong:          5.91,
		MinBrakeLong:          4.13,
		MaxBrakeLong:          9.50,
		MinBrakeLongCorrected: 1.86,
		MinBrakeLat:           0.86,
		MaxAccelLat:           0.45,
		Mu:                    0.07,
	}
}

// Aggressive returns parameter set with short reaction time
func Aggressive() Params {
	return Params{
		Name:                  PresetAggressive,
		ReactionTime:          0.53,
		MaxAccelLong:          4.10,
		MinBrakeLong:          4.64,
		MaxBrakeLong:          8.03,
		MinBrakeLongCorrected: 1.76,
		MinBrakeLat:           0.96,
		MaxAccelLat:           0.43,
		Mu:                    0.07,
	}
}

// Preset returns built-in parameter set by its name
func Preset(name string) (Params, error) {
	switch name {
	case PresetConservative:
		return Conservative(), nil
	case PresetAggressive:
		return Aggressive(), nil
	default:
		return Params{}, errors.Wrapf(ErrUnknownPreset, "preset '%s'", name)
	}
}

// Validate checks constraints of custom parameter set
func (params Params) Validate() error {
	if err := validate.Struct(params); err != nil {
		return errors.Wrapf(err, "invalid parameter set '%s'", params.Name)
	}
	return nil
}

// paramSetDoc is the on-disk shape of a parameter set. Pointers make every key mandatory.
type paramSetDoc struct {
	ReactionTime          *float64 `yaml:"reaction_time" validate:"required,gt=0"`
	MaxAccelLong          *float64 `yaml:"max_accel_long" validate:"required,gt=0"`
	MinBrakeLong          *float64 `yaml:"min_brake_long" validate:"required,gt=0"`
	MaxBrakeLong          *float64 `yaml:"max_brake_long" validate:"required,gt=0"`
	MinBrakeLongCorrected *float64 `yaml:"min_brake_long_corrected" validate:"required,gt=0"`
	MinBrakeLat           *float64 `yaml:"min_brake_lat" validate:"required,gt=0"`
	MaxAccelLat           *float64 `yaml:"max_accel_lat" validate:"required,gt=0"`
	Mu                    *float64 `yaml:"mu" validate:"required,gte=0"`
}

type paramSetsFile struct {
	Presets map[string]paramSetDoc `yaml:"presets"`
}

// ReadParamSets decodes named parameter sets from YAML document of the form
//
//	presets:
//	  city:
//	    reaction_time: 1.2
//	    ...
//
// Every numeric key is required. Sets are returned sorted by name.
func ReadParamSets(r io.Reader) ([]Params, error) {
	file := paramSetsFile{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "can't decode parameter sets")
	}
	names := make([]string, 0, len(file.Presets))
	for name := range file.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	sets := make([]Params, 0, len(names))
	for _, name := range names {
		doc := file.Presets[name]
		if err := validate.Struct(doc); err != nil {
			return nil, errors.Wrapf(err, "parameter set '%s'", name)
		}
		params := Params{
			Name:                  name,
			ReactionTime:          *doc.ReactionTime,
			MaxAccelLong:          *doc.MaxAccelLong,
			MinBrakeLong:          *doc.MinBrakeLong,
			MaxBrakeLong:          *doc.MaxBrakeLong,
			MinBrakeLongCorrected: *doc.MinBrakeLongCorrected,
			MinBrakeLat:           *doc.MinBrakeLat,
			MaxAccelLat:           *doc.MaxAccelLat,
			Mu:                    *doc.Mu,
		}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		sets = append(sets, params)
	}
	return sets, nil
}

// ParamSetsFromFile reads named parameter sets from YAML file
func ParamSetsFromFile(path string) ([]Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open parameter sets file '%s'", path)
	}
	defer f.Close()
	return ReadParamSets(f)
}
