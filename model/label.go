package model

import "strings"

// ClassificationLabel is the routing signal produced by the two phase policy.
type ClassificationLabel string

const (
	LabelMedical    ClassificationLabel = "MEDICAL"
	LabelNonMedical ClassificationLabel = "NON_MEDICAL"
	LabelUnknown    ClassificationLabel = "UNKNOWN"
)

// ParseClassificationLabel interprets a YES/NO reply of the classifier prompt.
// YES wins over NO when both appear; anything else is UNKNOWN.
func ParseClassificationLabel(reply string) ClassificationLabel {
	upper := strings.ToUpper(strings.TrimSpace(reply))
	switch {
	case upper == "":
		return LabelUnknown
	case strings.Contains(upper, "YES"):
		return LabelMedical
	case strings.Contains(upper, "NO"):
		return LabelNonMedical
	default:
		return LabelUnknown
	}
}
