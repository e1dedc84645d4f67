package extension

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Factory instantiates the plugins of one unit
type Factory func() ([]Plugin, error)

// Unit is one compiled-in source of plugins
type Unit struct {
	Name string
	New  Factory
}

// Discovery instantiates plugins from a fixed table of units
type Discovery struct {
	units  []Unit
	logger zerolog.Logger
}

// NewDiscovery creates a discovery over the given units
func NewDiscovery(logger zerolog.Logger, units ...Unit) *Discovery {
	return &Discovery{
		units:  units,
		logger: logger.With().Str("component", "plugin-discovery").Logger(),
	}
}

// Load instantiates every unit. A unit that fails or panics is logged and skipped.
func (d *Discovery) Load() []Plugin {
	plugins, _ := d.LoadWithErrors()
	return plugins
}

// LoadWithErrors is Load that also returns the unit failures
func (d *Discovery) LoadWithErrors() ([]Plugin, []error) {
	var (
		plugins []Plugin
		errs    []error
	)

	for _, unit := range d.units {
		loaded, err := d.loadUnit(unit)
		if err != nil {
			d.logger.Warn().Err(err).Str("unit", unit.Name).Msg("Failed to load plugin unit, skipping")
			errs = append(errs, err)
			continue
		}

		for _, p := range loaded {
			if p == nil {
				continue
			}
			d.logger.Debug().Str("unit", unit.Name).Str("plugin", p.Name()).Msg("Plugin loaded")
			plugins = append(plugins, p)
		}
	}

	d.logger.Info().
		Int("plugins", len(plugins)).
		Int("failedUnits", len(errs)).
		Msg("Plugin discovery completed")

	return plugins, errs
}

func (d *Discovery) loadUnit(unit Unit) (plugins []Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			plugins = nil
			err = &UnitError{Unit: unit.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if unit.New == nil {
		return nil, &UnitError{Unit: unit.Name, Err: fmt.Errorf("no factory")}
	}

	plugins, err = unit.New()
	if err != nil {
		return nil, &UnitError{Unit: unit.Name, Err: err}
	}
	return plugins, nil
}
