package cascade

import "time"

// Level identifies which stage of the cascade produced a result.
type Level int

const (
	// LevelNone means no stage ran to completion.
	LevelNone Level = 0
	// LevelDirect is the whole-image strategy-variant pass.
	LevelDirect Level = 1
	// LevelRotation is the rotated retry of the first variant.
	LevelRotation Level = 2
	// LevelMLDetect is the ONNX region detector pass.
	LevelMLDetect Level = 3
	// LevelFallback is the external detection service.
	LevelFallback Level = 4
)

func (l Level) String() string {
	switch l {
	case LevelDirect:
		return "direct"
	case LevelRotation:
		return "rotation"
	case LevelMLDetect:
		return "ml-detect"
	case LevelFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Result describes one scan's outcome, including enough provenance to tell
// which stage, preprocessing variant and decoder produced the hit.
type Result struct {
	Found       bool          `json:"found"`
	Content     string        `json:"content,omitempty"`
	Level       Level         `json:"level"`
	Strategy    string        `json:"strategy,omitempty"`
	Decoder     string        `json:"decoder,omitempty"`
	RotationDeg int           `json:"rotation_deg,omitempty"`
	ModelTier   string        `json:"model_tier,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}
