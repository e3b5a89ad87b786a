package domain

// MetricLevel classifies a KPI's position in the metric hierarchy.
type MetricLevel string

const (
	MetricLevelNorthStar   MetricLevel = "north_star"
	MetricLevelStrategic   MetricLevel = "strategic"
	MetricLevelOperational MetricLevel = "operational"
)

// EligibleForContribution reports whether a KPI level may receive a
// KPI-contribution value (spec.md §4.8: only north_star or strategic).
func (l MetricLevel) EligibleForContribution() bool {
	return l == MetricLevelNorthStar || l == MetricLevelStrategic
}

// OrganizationMetricConfig is one row of the KPI registry (spec.md §3).
type OrganizationMetricConfig struct {
	ID          int64
	KPIKey      string
	KPIName     string
	KPILevel    MetricLevel
	Unit        string
	Description string
	IsActive    bool
}
