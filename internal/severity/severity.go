// Package severity maps sensor values to dashboard severities. This is
// presentation policy, kept out of the parser and store so the vocabulary
// can change without touching domain logic.
package severity

const (
	Red    = "red"
	Yellow = "yellow"
	Green  = "green"
	Gray   = "gray"
)

var waterLevels = map[string]string{
	"low":    Red,
	"medium": Yellow,
	"high":   Green,
}

// ForWaterLevel returns the dashboard severity for a water level. Levels
// outside the known vocabulary map to Gray; the parser deliberately accepts
// any level string.
func ForWaterLevel(level string) string {
	if s, ok := waterLevels[level]; ok {
		return s
	}
	return Gray
}
