package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// RunStatus is the lifecycle state of an ingest run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed
}

// DiscoveryMethod tags how a molecule was discovered relative to its seed.
type DiscoveryMethod string

const (
	MethodSubstructure DiscoveryMethod = "substructure"
	MethodSim2D        DiscoveryMethod = "sim2d"
	MethodSim3D        DiscoveryMethod = "sim3d"
)

// NormalizeDiscoveryMethod maps free-form manifest values onto known tags.
// Blank defaults to substructure; the legacy "similarity" label means sim2d.
// Unknown tags pass through lowercased.
func NormalizeDiscoveryMethod(raw string) DiscoveryMethod {
	m := strings.ToLower(strings.TrimSpace(raw))
	switch m {
	case "":
		return MethodSubstructure
	case "similarity":
		return MethodSim2D
	default:
		return DiscoveryMethod(m)
	}
}

// RunStats is the statistics payload persisted with a finished run.
type RunStats struct {
	RowsUpserted      int     `json:"rows_upserted"`
	GeometryMatched   int     `json:"geometry_matched"`
	GeometryUnmatched int     `json:"geometry_unmatched"`
	GeometryErrors    int     `json:"geometry_errors"`
	CoverageRatio     float64 `json:"coverage_ratio"`
}

// Coverage returns matched geometry rows over manifest rows, zero when the
// manifest is empty.
func (s RunStats) Coverage() float64 {
	if s.RowsUpserted <= 0 {
		return 0
	}
	return float64(s.GeometryMatched) / float64(s.RowsUpserted)
}

// Value stores RunStats in SQLite as JSON.
func (s RunStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *RunStats) Scan(value interface{}) error {
	if value == nil {
		*s = RunStats{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("failed to scan RunStats")
	}
}
