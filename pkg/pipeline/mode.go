package pipeline

import (
	"fmt"
	"strings"

	"radwaste/pkg/config"
)

// Mode selects how activity is grouped into mesh rows.
type Mode int

const (
	// Standard produces one row per voxel over every cell and isotope.
	Standard Mode = iota
	// Filtered is Standard restricted to chosen cells, isotopes and the
	// voxels inside the radwaste box.
	Filtered
	// ByComponent produces one row per named component.
	ByComponent
)

func (m Mode) String() string {
	switch m {
	case Standard:
		return config.ModeStandard
	case Filtered:
		return config.ModeFiltered
	case ByComponent:
		return config.ModeByComponent
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a configuration or command line mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.ModeStandard:
		return Standard, nil
	case config.ModeFiltered:
		return Filtered, nil
	case config.ModeByComponent, "bycomponent", "by_component":
		return ByComponent, nil
	}
	return 0, fmt.Errorf("unknown processing mode %q", s)
}
