package main

import (
	"strconv"
	"strings"
)

// Known tag sets for section extraction. A section runs from its tag line to
// the next line starting with any tag in the same set.
var (
	modelResponseTags = []string{
		"PERSPECTIVE_ANALYSIS", "REASONING", "CONFIDENCE",
		"COMPREHENSIVE_SYNTHESIS", "FINAL_CONFIDENCE",
	}

	judgeResponseTags = []string{
		"FINAL_EVALUATION", "AGREEMENTS_DISAGREEMENTS", "BEST_INSIGHTS",
		"FINAL_SYNTHESIS", "METHODOLOGY_ASSESSMENT",
	}
)

// judgeTagsFor returns the judge tag set extended with each analysis agent's
// score tag, so score lines terminate the preceding section.
func judgeTagsFor(agents []*AgentClient) []string {
	tags := make([]string, 0, len(judgeResponseTags)+len(agents))
	tags = append(tags, judgeResponseTags...)
	for _, agent := range agents {
		tags = append(tags, scoreTag(agent.Name))
	}
	return tags
}

// scoreTag converts an agent name to its judge score tag (CLAUDE_SCORE etc).
func scoreTag(name string) string {
	return envPrefix(name) + "_SCORE"
}

// extractSection pulls the named tag's value out of free-form model text.
// A section starts on a line whose trimmed text begins with "TAG:" and
// captures the remainder of that line plus every following line until a line
// starts with any tag in known. A missing tag yields "". Extraction never
// consumes its input, so re-extracting from the same content is stable.
func extractSection(content, tag string, known []string) string {
	var section []string
	capturing := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, tag+":"):
			capturing = true
			_, rest, _ := strings.Cut(trimmed, ":")
			section = append(section, strings.TrimSpace(rest))
		case capturing && startsWithAnyTag(trimmed, known):
			return strings.TrimSpace(strings.Join(section, "\n"))
		case capturing:
			section = append(section, line)
		}
	}

	return strings.TrimSpace(strings.Join(section, "\n"))
}

func startsWithAnyTag(line string, tags []string) bool {
	for _, t := range tags {
		if strings.HasPrefix(line, t+":") {
			return true
		}
	}
	return false
}

// extractConfidence finds the first CONFIDENCE: or FINAL_CONFIDENCE: line and
// parses its value. Missing or unparseable confidence defaults to 0.7; parsed
// values are clamped to [0, 1].
func extractConfidence(content string) float64 {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		var raw string
		if strings.HasPrefix(trimmed, "CONFIDENCE:") {
			raw = strings.TrimPrefix(trimmed, "CONFIDENCE:")
		} else if strings.HasPrefix(trimmed, "FINAL_CONFIDENCE:") {
			raw = strings.TrimPrefix(trimmed, "FINAL_CONFIDENCE:")
		} else {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0.7
		}
		return clamp01(value)
	}
	return 0.7
}

// extractScore parses a judge score line like "CLAUDE_SCORE: 0.85". Missing
// or unparseable scores default to 0.5; values are clamped to [0, 1].
// Brackets around the value are tolerated.
func extractScore(content, tag string) float64 {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, tag+":") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(trimmed, tag+":"))
		raw = strings.Trim(raw, "[]")
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0.5
		}
		return clamp01(value)
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
