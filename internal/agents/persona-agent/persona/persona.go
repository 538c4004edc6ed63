// Package persona loads the character the agent speaks as.
package persona

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Persona struct {
	Name     string   `yaml:"name"`
	Username string   `yaml:"username"`
	Preamble string   `yaml:"preamble"`
	Bio      []string `yaml:"bio"`
	Lore     []string `yaml:"lore"`
	Topics   []string `yaml:"topics"`
	Style    []string `yaml:"style"`

	// ImageStyle is appended to image prompts for media posts.
	ImageStyle string `yaml:"image_style"`
	// DialogueSpeaker selects transcript lines at ingestion; defaults to Name.
	DialogueSpeaker string `yaml:"dialogue_speaker"`
}

func Load(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read persona: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Persona{}, fmt.Errorf("persona %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML persona; unknown keys are rejected.
func Parse(data []byte) (Persona, error) {
	var p Persona
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Persona{}, fmt.Errorf("failed to parse persona: %w", err)
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Username = strings.TrimPrefix(strings.TrimSpace(p.Username), "@")
	if p.Name == "" {
		return Persona{}, errors.New("persona name is required")
	}
	if strings.TrimSpace(p.DialogueSpeaker) == "" {
		p.DialogueSpeaker = p.Name
	}
	return p, nil
}

// Render builds the system preamble for generation requests.
func (p Persona) Render() string {
	var b strings.Builder
	if s := strings.TrimSpace(p.Preamble); s != "" {
		b.WriteString(s)
	} else {
		fmt.Fprintf(&b, "You are %s.", p.Name)
	}
	section := func(title string, lines []string) {
		var kept []string
		for _, l := range lines {
			if l = strings.TrimSpace(l); l != "" {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			return
		}
		b.WriteString("\n\n")
		b.WriteString(title)
		b.WriteString(":")
		for _, l := range kept {
			b.WriteString("\n- ")
			b.WriteString(l)
		}
	}
	section("About you", p.Bio)
	section("Background", p.Lore)
	section("Topics you care about", p.Topics)
	section("How you write", p.Style)
	return b.String()
}
