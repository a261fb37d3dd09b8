package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// resultToken matches an input that is exactly a reference to an earlier
// step's output. A RESULT_ substring buried in literal text does not count.
var resultToken = regexp.MustCompile(`^RESULT_(\d+)$`)

// ErrUnresolvedReference means a step referenced the output of a step that
// never ran. Fatal to the chain.
var ErrUnresolvedReference = errors.New("referenced result not found")

// Results holds step outputs keyed by step number. One Results lives for
// exactly one chain execution and is discarded with it.
type Results struct {
	outputs map[int]string
}

func NewResults() *Results {
	return &Results{outputs: make(map[int]string)}
}

// Store records a step's raw output.
func (r *Results) Store(stepNumber int, output string) {
	r.outputs[stepNumber] = output
}

// Get returns the stored output for a step.
func (r *Results) Get(stepNumber int) (string, bool) {
	out, ok := r.outputs[stepNumber]
	return out, ok
}

// Resolve turns a step's declared input into the text to send to the tool
// host. Literal inputs pass through unchanged. A RESULT_<n> token is replaced
// by step n's stored output, unwrapping a content envelope when the output
// looks like one.
func (r *Results) Resolve(input string) (string, error) {
	m := resultToken.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return input, nil
	}

	step, err := strconv.Atoi(m[1])
	if err != nil {
		return input, nil
	}

	stored, ok := r.outputs[step]
	if !ok {
		return "", fmt.Errorf("%w: RESULT_%d", ErrUnresolvedReference, step)
	}

	return unwrapContent(stored), nil
}

// contentEnvelope is the tool-host result shape that sometimes ends up
// stored verbatim: {"content":[{"type":"text","text":"..."}]}.
type contentEnvelope struct {
	Content []struct {
		Text *string `json:"text"`
	} `json:"content"`
}

// unwrapContent extracts the first text field from a content envelope.
// The stored value's shape is not contractually guaranteed, so every
// failure keeps the original value.
func unwrapContent(stored string) string {
	if !strings.HasPrefix(strings.TrimSpace(stored), "{") {
		return stored
	}

	var env contentEnvelope
	if err := json.Unmarshal([]byte(stored), &env); err != nil {
		log.Printf("Stored result is not a content envelope, using as-is: %v", err)
		return stored
	}

	for _, c := range env.Content {
		if c.Text != nil {
			return *c.Text
		}
	}
	return stored
}
