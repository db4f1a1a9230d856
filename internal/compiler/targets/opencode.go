package targets

import (
	"fmt"
	"strings"
)

func init() {
	Register(&OpenCodeTarget{})
}

// OpenCodeTarget has no structured skill field, so skill-loading is
// spelled out as an instruction segment at the front of each generated
// session prompt.
type OpenCodeTarget struct{}

func (t *OpenCodeTarget) Name() string { return "opencode" }

func (t *OpenCodeTarget) SkillsAsField() bool { return false }

func (t *OpenCodeTarget) PromptPrefix(skills []string) string {
	if len(skills) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, skill := range skills {
		fmt.Fprintf(&sb, "Load skill %s before proceeding. ", skill)
	}
	return sb.String()
}
