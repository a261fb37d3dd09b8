package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rahul/sutra/internal/host"
)

// Descriptor is one tool as presented to the planner.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Fetch queries the tool host and normalizes its tools for prompt embedding.
// The catalog is rebuilt on every request; the host's tool set may change
// between requests.
func Fetch(ctx context.Context, session host.Session) ([]Descriptor, error) {
	tools, err := session.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	descriptors := make([]Descriptor, 0, len(tools))
	for _, t := range tools {
		params, err := schemaToMap(t.InputSchema)
		if err != nil {
			log.Printf("Skipping tool %s with unusable input schema: %v", t.Name, err)
			continue
		}
		descriptors = append(descriptors, Descriptor{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}

	if len(descriptors) == 0 {
		log.Printf("Warning: tool host returned no tools")
	}
	return descriptors, nil
}

// Render produces the JSON catalog block embedded in the planning prompt.
func Render(descriptors []Descriptor) string {
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func schemaToMap(schema any) (map[string]any, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize input schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode input schema: %w", err)
	}
	return m, nil
}
