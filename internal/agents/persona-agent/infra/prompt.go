package infra

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed assets/should_*.txt
var gateTemplates embed.FS

// GateTemplate returns the yes/no prompt for an attention action such as
// "reply" or "like".
func GateTemplate(action string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == "" || strings.ContainsAny(a, `/\.`) {
		return "", fmt.Errorf("invalid gate action %q", action)
	}
	b, err := gateTemplates.ReadFile("assets/should_" + a + ".txt")
	if err != nil {
		return "", fmt.Errorf("no gate template for %q: %w", action, err)
	}
	return string(b), nil
}
