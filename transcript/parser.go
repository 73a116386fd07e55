package transcript

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zulabs/podforge/logger"
)

// Parse recovers a transcript from a model's free-text response. Models asked
// for JSON do not reliably emit it, so extraction falls back through three
// strategies, strictest first:
//
//  1. ParseArray: slice the first '[' through the last ']' and decode the
//     whole array.
//  2. ParseObjects: bracket-balanced scan for individual {...} objects,
//     decoded one at a time; objects that fail to decode are skipped.
//  3. ParseKeyValues: tolerant regex over speaker/text key-value pairs
//     without full JSON punctuation.
//
// The recovered utterances are validated against the transcript schema.
// Parse returns a *FormatError when no strategy yields a valid transcript.
func Parse(raw string) ([]Utterance, error) {
	utterances, err := ParseArray(raw)
	if err != nil {
		logger.Debug("strict array parse failed, trying object scan", "error", err)
		utterances, err = ParseObjects(raw)
	}
	if err != nil {
		logger.Debug("object scan failed, trying key-value extraction", "error", err)
		utterances, err = ParseKeyValues(raw)
	}
	if err != nil {
		return nil, &FormatError{Reason: "no transcript found in model response", Raw: raw}
	}

	if err := Validate(utterances); err != nil {
		return nil, err
	}
	return utterances, nil
}

// ParseArray decodes the response as a single JSON array, tolerating leading
// and trailing prose around it.
func ParseArray(raw string) ([]Utterance, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, &FormatError{Reason: "no JSON array found in response", Raw: raw}
	}

	var utterances []Utterance
	if err := json.Unmarshal([]byte(raw[start:end+1]), &utterances); err != nil {
		return nil, &FormatError{Reason: "malformed JSON array: " + err.Error(), Raw: raw[start : end+1]}
	}
	if len(utterances) == 0 {
		return nil, &FormatError{Reason: "empty JSON array", Raw: raw[start : end+1]}
	}

	return trimAll(utterances), nil
}

// ParseObjects extracts individual {...} objects with a bracket-balanced scan
// and decodes each independently. A single undecodable object is skipped and
// reported, never aborting the batch.
func ParseObjects(raw string) ([]Utterance, error) {
	var utterances []Utterance

	for _, candidate := range scanObjects(raw) {
		var u Utterance
		if err := json.Unmarshal([]byte(candidate), &u); err != nil {
			logger.Warn("skipping unparseable segment", "segment", candidate, "error", err)
			continue
		}
		if u.Speaker == "" && u.Text == "" {
			continue
		}
		utterances = append(utterances, u)
	}

	if len(utterances) == 0 {
		return nil, &FormatError{Reason: "no valid segments found in response", Raw: raw}
	}

	return trimAll(utterances), nil
}

// scanObjects returns every top-level brace-balanced substring, respecting
// string literals and escapes.
func scanObjects(raw string) []string {
	var (
		objects  []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i, r := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 {
					objects = append(objects, raw[start:i+1])
				}
			}
		}
	}

	return objects
}

// keyValuePattern matches loose speaker/text pairs where the model dropped
// braces, commas, or key quoting but kept the values quoted.
var keyValuePattern = regexp.MustCompile(
	`(?is)"?speaker"?\s*[:=]\s*"?(speaker\s*[12])"?\s*,?\s*"?text"?\s*[:=]\s*"([^"]+)"`,
)

// ParseKeyValues extracts utterances from loose key:value pairs per paragraph,
// without requiring full JSON punctuation.
func ParseKeyValues(raw string) ([]Utterance, error) {
	matches := keyValuePattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, &FormatError{Reason: "no speaker/text pairs found in response", Raw: raw}
	}

	utterances := make([]Utterance, 0, len(matches))
	for _, m := range matches {
		utterances = append(utterances, Utterance{
			Speaker: canonicalSpeaker(m[1]),
			Text:    strings.TrimSpace(m[2]),
		})
	}

	return utterances, nil
}

// canonicalSpeaker normalizes case and spacing of a captured speaker tag.
func canonicalSpeaker(tag string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(tag)), " ")
	switch normalized {
	case "speaker 1", "speaker1":
		return SpeakerOne
	case "speaker 2", "speaker2":
		return SpeakerTwo
	}
	return tag
}

func trimAll(utterances []Utterance) []Utterance {
	for i := range utterances {
		utterances[i].Text = strings.TrimSpace(utterances[i].Text)
	}
	return utterances
}
