package schema

// ============================================================================
// SCHEMA — Column roles of a loaded sheet
// ============================================================================
// Produced by Classify. The filter builder uses it to decide which
// predicate kind each column gets; the metric engine uses the special roles
// (hour-meter, maintenance status, latitude/longitude) to decide which
// features are applicable.
// ============================================================================

// Role is the semantic role of a column.
type Role string

const (
	RoleCategorical       Role = "categorical"
	RoleNumeric           Role = "numeric"
	RoleTemporal          Role = "temporal"
	RoleLatitude          Role = "latitude"
	RoleLongitude         Role = "longitude"
	RoleMaintenanceStatus Role = "maintenance_status"
	RoleHourMeter         Role = "hour_meter"
)

// Classification partitions the columns of one table.
//
// Categorical, Numeric and Temporal are disjoint and cover every column.
// The single-column roles are picked separately (leftmost match wins) and
// are empty when no column qualifies.
type Classification struct {
	Table   string       `json:"table"`
	Rows    int          `json:"rows"`
	Columns []ColumnMeta `json:"columns"`

	Categorical []string `json:"categorical"`
	Numeric     []string `json:"numeric"`
	Temporal    []string `json:"temporal"`

	Latitude          string `json:"latitude,omitempty"`
	Longitude         string `json:"longitude,omitempty"`
	MaintenanceStatus string `json:"maintenanceStatus,omitempty"`
	HourMeter         string `json:"hourMeter,omitempty"`

	ClassifiedAt string `json:"classifiedAt,omitempty"`
}

// ColumnMeta describes one column.
type ColumnMeta struct {
	Name            string   `json:"name"`
	Key             string   `json:"key"`
	DisplayName     string   `json:"displayName"`
	Role            Role     `json:"role"`
	DistinctCount   int      `json:"distinctCount"`
	MissingCount    int      `json:"missingCount"`
	SampleValues    []string `json:"sampleValues"`
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"
	TemporalLayout  string   `json:"temporalLayout,omitempty"`  // Go layout, or "excel-serial"
}

// RoleOf returns the base role of a column, or "" for unknown columns.
func (c *Classification) RoleOf(column string) Role {
	for _, m := range c.Columns {
		if m.Name == column {
			return m.Role
		}
	}
	return ""
}

// Meta returns the metadata of a column.
func (c *Classification) Meta(column string) (ColumnMeta, bool) {
	for _, m := range c.Columns {
		if m.Name == column {
			return m, true
		}
	}
	return ColumnMeta{}, false
}

// HasGeo reports whether both latitude and longitude columns were found.
func (c *Classification) HasGeo() bool {
	return c.Latitude != "" && c.Longitude != ""
}

// HasAlerts reports whether both columns the maintenance alert needs exist.
func (c *Classification) HasAlerts() bool {
	return c.MaintenanceStatus != "" && c.HourMeter != ""
}

// IsNumeric reports whether column holds numbers.
func (c *Classification) IsNumeric(column string) bool {
	return c.RoleOf(column) == RoleNumeric
}

// WithNumeric returns a copy of the classification with an extra numeric
// column appended (used after a derived column is added).
func (c *Classification) WithNumeric(column string, meta ColumnMeta) *Classification {
	out := *c
	out.Columns = append(append([]ColumnMeta(nil), c.Columns...), meta)
	out.Numeric = append(append([]string(nil), c.Numeric...), column)
	return &out
}
