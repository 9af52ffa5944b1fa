package models

// Router settings keys in the ai_router_settings table.
const (
	SettingRegionWeight        = "region_weight"
	SettingPerformanceWeight   = "performance_weight"
	SettingFairnessWeight      = "fairness_weight"
	SettingAutoAssignEnabled   = "auto_assign_enabled"
	SettingAutoAssignThreshold = "auto_assign_threshold"
)

// RouterSettings holds the global tunable routing weights. Weights are
// nominally centered at 50, acting as multipliers around 1.0 (100 doubles a
// factor, 0 zeroes it). Reloaded per assignment call; on any fetch failure
// callers fall back to DefaultRouterSettings.
type RouterSettings struct {
	RegionWeight      int `json:"region_weight"`
	PerformanceWeight int `json:"performance_weight"`
	FairnessWeight    int `json:"fairness_weight"`

	AutoAssignEnabled   bool `json:"auto_assign_enabled"`
	AutoAssignThreshold int  `json:"auto_assign_threshold"` // 0-100 minimum score to auto-commit
}

// DefaultRouterSettings returns the documented fallback weights.
func DefaultRouterSettings() RouterSettings {
	return RouterSettings{
		RegionWeight:        50,
		PerformanceWeight:   50,
		FairnessWeight:      50,
		AutoAssignEnabled:   true,
		AutoAssignThreshold: 0,
	}
}

// Clamp bounds all weight values to [0,100].
func (s *RouterSettings) Clamp() {
	s.RegionWeight = clamp100(s.RegionWeight)
	s.PerformanceWeight = clamp100(s.PerformanceWeight)
	s.FairnessWeight = clamp100(s.FairnessWeight)
	s.AutoAssignThreshold = clamp100(s.AutoAssignThreshold)
}

func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
