package vision

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"

	"github.com/sells-group/solar-engine/internal/model"
)

// ErrNonConforming marks a model reply that is not a usable roof object.
var ErrNonConforming = eris.New("vision: non-conforming model response")

// roofSchema is the contract every provider reply must satisfy.
var roofSchema = gojsonschema.NewGoLoader(map[string]any{
	"type":     "object",
	"required": []any{"area", "shading", "pitch", "complexity", "usablePercent", "confidence"},
	"properties": map[string]any{
		"area":           map[string]any{"type": "number", "minimum": 1, "maximum": 100000},
		"shading":        map[string]any{"type": "string"},
		"pitch":          map[string]any{"type": "number", "minimum": 0, "maximum": 90},
		"complexity":     map[string]any{"type": "string"},
		"usablePercent":  map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		"existingPanels": map[string]any{"type": "integer", "minimum": 0},
		"efficiency":     map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		"orientation":    map[string]any{"type": "string"},
		"condition":      map[string]any{"type": "string"},
		"confidence":     map[string]any{"type": "number", "minimum": 0, "maximum": 100},
	},
})

// roofReply mirrors the JSON object requested in the prompt.
type roofReply struct {
	Area           float64  `json:"area"`
	Shading        string   `json:"shading"`
	Pitch          float64  `json:"pitch"`
	Complexity     string   `json:"complexity"`
	UsablePercent  float64  `json:"usablePercent"`
	ExistingPanels *float64 `json:"existingPanels"`
	Efficiency     *float64 `json:"efficiency"`
	Orientation    string   `json:"orientation"`
	Condition      string   `json:"condition"`
	Confidence     float64  `json:"confidence"`
}

// cleanJSON strips markdown fences and extracts the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseReply validates a raw model reply and converts it to a RoofAnalysis.
// Plain prose, schema violations and unknown enum values are all
// ErrNonConforming.
func parseReply(raw string) (model.RoofAnalysis, error) {
	body := cleanJSON(raw)
	if !strings.HasPrefix(body, "{") {
		return model.RoofAnalysis{}, eris.Wrap(ErrNonConforming, "no json object in reply")
	}

	result, err := gojsonschema.Validate(roofSchema, gojsonschema.NewStringLoader(body))
	if err != nil {
		return model.RoofAnalysis{}, eris.Wrapf(ErrNonConforming, "decode reply: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return model.RoofAnalysis{}, eris.Wrapf(ErrNonConforming, "schema: %s", strings.Join(msgs, "; "))
	}

	var reply roofReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return model.RoofAnalysis{}, eris.Wrapf(ErrNonConforming, "unmarshal reply: %v", err)
	}

	shading, ok := model.ParseShadingLevel(reply.Shading)
	if !ok {
		return model.RoofAnalysis{}, eris.Wrapf(ErrNonConforming, "unknown shading %q", reply.Shading)
	}
	complexity, ok := model.ParseComplexity(reply.Complexity)
	if !ok {
		return model.RoofAnalysis{}, eris.Wrapf(ErrNonConforming, "unknown complexity %q", reply.Complexity)
	}

	confidence := normalizeConfidence(reply.Confidence)
	roof := model.RoofAnalysis{
		AreaM2:        reply.Area,
		Shading:       shading,
		PitchDegrees:  reply.Pitch,
		Complexity:    complexity,
		UsablePercent: reply.UsablePercent,
		Orientation:   strings.ToLower(strings.TrimSpace(reply.Orientation)),
		Condition:     strings.ToLower(strings.TrimSpace(reply.Condition)),
		AIConfidence:  &confidence,
		UsedAI:        true,
	}
	if reply.ExistingPanels != nil {
		detected := int(math.Round(*reply.ExistingPanels))
		roof.ExistingPanels = model.NewPanelRange(detected)
		roof.PanelCount = detected
	}
	if reply.Efficiency != nil {
		roof.CurrentEfficiency = *reply.Efficiency
	} else {
		roof.CurrentEfficiency = baselineEfficiency(shading)
	}
	return roof, nil
}

// normalizeConfidence maps a provider confidence onto 0-100. Values below 1
// are read as fractions.
func normalizeConfidence(c float64) float64 {
	if c < 1 {
		c *= 100
	}
	return math.Max(0, math.Min(100, c))
}

// baselineEfficiency estimates how well existing panels perform when the
// model did not report it, from shading alone.
func baselineEfficiency(s model.ShadingLevel) float64 {
	switch s {
	case model.ShadingHigh:
		return 70
	case model.ShadingMedium:
		return 78
	default:
		return 85
	}
}
