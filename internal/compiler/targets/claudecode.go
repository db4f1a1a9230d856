package targets

func init() {
	Register(&ClaudeCodeTarget{})
}

// ClaudeCodeTarget encodes skills structurally: import lines survive in
// canonical output and agent definitions carry a skills: field. Session
// prompts pass through untouched.
type ClaudeCodeTarget struct{}

func (t *ClaudeCodeTarget) Name() string { return "claude-code" }

func (t *ClaudeCodeTarget) SkillsAsField() bool { return true }

func (t *ClaudeCodeTarget) PromptPrefix(skills []string) string { return "" }
