package connectivity

import (
	"github.com/coreplane/activityd/internal/shared/types"
)

// Confidence is an ordered quality band of a connection.
type Confidence int

// Ordering: unknown < none < poor < fair < excellent. Unknown is a
// sentinel reported externally; it is not a requestable level.
const (
	ConfidenceUnknown   Confidence = -1
	ConfidenceNone      Confidence = 0
	ConfidencePoor      Confidence = 1
	ConfidenceFair      Confidence = 2
	ConfidenceExcellent Confidence = 3

	confidenceMax = 4
)

var confidenceNames = [confidenceMax]string{"none", "poor", "fair", "excellent"}

const confidenceUnknownName = "unknown"

// String returns the external name of the level.
func (c Confidence) String() string {
	if c < 0 || int(c) >= confidenceMax {
		return confidenceUnknownName
	}
	return confidenceNames[c]
}

// parseConfidence maps an external name to a level, ConfidenceUnknown if
// the name is not a known level.
func parseConfidence(v interface{}) Confidence {
	s, ok := v.(string)
	if !ok {
		return ConfidenceUnknown
	}
	for i, name := range confidenceNames {
		if s == name {
			return Confidence(i)
		}
	}
	return ConfidenceUnknown
}

// requestedConfidence validates a caller-supplied level for a confidence
// requirement. Unknown and out-of-range values are validation errors.
func requestedConfidence(v interface{}) (Confidence, error) {
	c := parseConfidence(v)
	if c == ConfidenceUnknown {
		return 0, types.InvalidArg("invalid connection confidence level specified")
	}
	if c < 0 || int(c) >= confidenceMax {
		return 0, types.InvalidArg("confidence out of range")
	}
	return c, nil
}

func maxConfidence(a, b Confidence) Confidence {
	if a > b {
		return a
	}
	return b
}
