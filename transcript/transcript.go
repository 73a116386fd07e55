// Package transcript defines podcast transcripts and the tolerant parsing of
// model output into them.
//
// A transcript is an ordered sequence of speaker-tagged utterances. The order
// fixed at synthesis time is the playback order and is never reshuffled.
package transcript

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Speaker tags. The speaker keys stay in English regardless of the transcript
// language.
const (
	SpeakerOne = "Speaker 1"
	SpeakerTwo = "Speaker 2"
)

const (
	// MaxUtterances bounds a transcript's length.
	MaxUtterances = 20
	// MaxTextLength bounds a single utterance's text.
	MaxTextLength = 500
)

// Utterance is one speaker-tagged line of dialogue. Immutable once created.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// transcriptSchema mirrors the bounds enforced on every generated transcript.
const transcriptSchema = `{
	"type": "array",
	"minItems": 1,
	"maxItems": 20,
	"items": {
		"type": "object",
		"required": ["speaker", "text"],
		"properties": {
			"speaker": {"type": "string", "enum": ["Speaker 1", "Speaker 2"]},
			"text": {"type": "string", "minLength": 1, "maxLength": 500}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(transcriptSchema)

// FormatError reports model output that could not be parsed or validated into
// a valid transcript. Raw carries the offending segment (or the full response
// when nothing could be extracted).
type FormatError struct {
	Reason string
	Raw    string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	raw := e.Raw
	const maxRawPreview = 200
	if len(raw) > maxRawPreview {
		raw = raw[:maxRawPreview] + "..."
	}
	return fmt.Sprintf("invalid transcript format: %s: %q", e.Reason, raw)
}

// Validate checks a transcript against the schema bounds: 1-20 utterances,
// each with a known speaker tag and non-empty text of at most 500 characters.
// Returns a *FormatError naming the first violation.
func Validate(utterances []Utterance) error {
	docLoader := gojsonschema.NewGoLoader(utterances)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return &FormatError{Reason: "schema validation error: " + err.Error()}
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return &FormatError{
			Reason: "schema violations: " + strings.Join(errs, "; "),
			Raw:    offendingSegment(utterances, result),
		}
	}

	return nil
}

// offendingSegment resolves the first schema violation back to the utterance
// it refers to, so the error carries the raw segment rather than a bare path.
func offendingSegment(utterances []Utterance, result *gojsonschema.Result) string {
	if len(result.Errors()) == 0 {
		return ""
	}

	field := result.Errors()[0].Field()
	idx := 0
	if n, err := fmt.Sscanf(field, "%d", &idx); err != nil || n == 0 {
		return fmt.Sprintf("%v", utterances)
	}
	if idx < 0 || idx >= len(utterances) {
		return fmt.Sprintf("%v", utterances)
	}
	return fmt.Sprintf("{speaker: %q, text: %q}", utterances[idx].Speaker, utterances[idx].Text)
}
