// Package safety holds the reviewed, versioned copy the pipeline sends when it
// must not depend on the generative backend.
package safety

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Resource is one crisis support option shown to the user.
type Resource struct {
	Name      string  `yaml:"name" json:"name"`
	Action    string  `yaml:"action" json:"action"`
	URL       *string `yaml:"url,omitempty" json:"url"`
	Available string  `yaml:"available" json:"available"`
}

// Content is the full safety table.
type Content struct {
	Version            string     `yaml:"version"`
	EscalationResponse string     `yaml:"escalation_response"`
	FallbackResponse   string     `yaml:"fallback_response"`
	EmptyReplyResponse string     `yaml:"empty_reply_response"`
	Resources          []Resource `yaml:"resources"`
}

// Default returns the embedded table. The embedded file is covered by tests,
// so a parse failure here is a build defect.
func Default() Content {
	content, err := Parse(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("safety: embedded content invalid: %v", err))
	}
	return content
}

// Load reads an override table from path.
func Load(path string) (Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("read safety content: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML table.
func Parse(raw []byte) (Content, error) {
	var content Content
	if err := yaml.Unmarshal(raw, &content); err != nil {
		return Content{}, fmt.Errorf("decode safety content: %w", err)
	}
	if err := content.Validate(); err != nil {
		return Content{}, err
	}
	return content, nil
}

// Validate rejects tables missing any copy the pipeline relies on.
func (c Content) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Version) == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if strings.TrimSpace(c.EscalationResponse) == "" {
		errs = append(errs, errors.New("escalation_response is required"))
	}
	if strings.TrimSpace(c.FallbackResponse) == "" {
		errs = append(errs, errors.New("fallback_response is required"))
	}
	if strings.TrimSpace(c.EmptyReplyResponse) == "" {
		errs = append(errs, errors.New("empty_reply_response is required"))
	}
	if len(c.Resources) == 0 {
		errs = append(errs, errors.New("at least one resource is required"))
	}
	for i, r := range c.Resources {
		if r.Name == "" || r.Action == "" {
			errs = append(errs, fmt.Errorf("resource %d needs name and action", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid safety content: %w", errors.Join(errs...))
	}
	return nil
}

// ResourcesCopy returns the resources detached from the table.
func (c Content) ResourcesCopy() []Resource {
	return append([]Resource(nil), c.Resources...)
}
