package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Subs is the event subscription bitmask sent in Identify.
type Subs uint32

const (
	SubsGeneral Subs = 1 << iota
	SubsConfig
	SubsScenes
	SubsInputs
	SubsTransitions
	SubsFilters
	SubsOutputs
	SubsSceneItems
	SubsMediaInputs
	SubsVendors
	SubsUI
)

// High-volume categories must be requested explicitly.
const (
	SubsInputVolumeMeters         Subs = 1 << 16
	SubsInputActiveStateChanged   Subs = 1 << 17
	SubsInputShowStateChanged     Subs = 1 << 18
	SubsSceneItemTransformChanged Subs = 1 << 19
)

const SubsNone Subs = 0

const (
	SubsLowVolume = SubsGeneral | SubsConfig | SubsScenes | SubsInputs | SubsTransitions |
		SubsFilters | SubsOutputs | SubsSceneItems | SubsMediaInputs | SubsVendors | SubsUI

	SubsHighVolume = SubsInputVolumeMeters | SubsInputActiveStateChanged |
		SubsInputShowStateChanged | SubsSceneItemTransformChanged

	SubsAll = SubsLowVolume | SubsHighVolume
)

var subsNames = []struct {
	name string
	subs Subs
}{
	{"general", SubsGeneral},
	{"config", SubsConfig},
	{"scenes", SubsScenes},
	{"inputs", SubsInputs},
	{"transitions", SubsTransitions},
	{"filters", SubsFilters},
	{"outputs", SubsOutputs},
	{"scene_items", SubsSceneItems},
	{"media_inputs", SubsMediaInputs},
	{"vendors", SubsVendors},
	{"ui", SubsUI},
	{"input_volume_meters", SubsInputVolumeMeters},
	{"input_active_state_changed", SubsInputActiveStateChanged},
	{"input_show_state_changed", SubsInputShowStateChanged},
	{"scene_item_transform_changed", SubsSceneItemTransformChanged},
}

// Has reports whether all bits of o are set in s.
func (s Subs) Has(o Subs) bool { return s&o == o }

func (s Subs) String() string {
	if s == SubsNone {
		return "none"
	}
	var parts []string
	rest := s
	for _, n := range subsNames {
		if s&n.subs != 0 {
			parts = append(parts, n.name)
			rest &^= n.subs
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseSubs parses a comma- or pipe-separated list of category names, aggregate names (none, low, high, all), or integers.
func ParseSubs(s string) (Subs, error) {
	var subs Subs
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "":
			continue
		case "none":
			continue
		case "low", "low_volume":
			subs |= SubsLowVolume
			continue
		case "high", "high_volume":
			subs |= SubsHighVolume
			continue
		case "all":
			subs |= SubsAll
			continue
		}
		if n, err := strconv.ParseUint(f, 0, 32); err == nil {
			subs |= Subs(n)
			continue
		}
		found := false
		for _, n := range subsNames {
			if n.name == f || strings.ReplaceAll(n.name, "_", "") == f {
				subs |= n.subs
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown event subscription %q", f)
		}
	}
	return subs, nil
}
