package vision

import "strings"

const systemPrompt = `You are a solar installation surveyor reviewing aerial and street-level roof photographs in Atlantic Canada.
Reply with a single JSON object and nothing else.`

const basePrompt = `Assess this roof for solar panels and return JSON with exactly these fields:
{
  "area": roof area in square metres (number),
  "shading": "low" | "medium" | "high",
  "pitch": roof pitch in degrees (number, 0-90),
  "complexity": "simple" | "moderate" | "complex",
  "usablePercent": share of the roof usable for panels (number, 0-100),
  "existingPanels": number of solar panels already installed (integer, omit if none are visible),
  "efficiency": estimated performance of existing panels as a percentage (number, omit if none),
  "orientation": main roof face direction such as "south" or "south-west",
  "condition": "excellent" | "good" | "fair" | "worn",
  "confidence": your confidence in this assessment from 0 to 100
}`

// buildPrompt appends caller-supplied context to the base instruction.
func buildPrompt(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return basePrompt
	}
	return basePrompt + "\n\nAdditional context from the homeowner:\n" + extra
}
