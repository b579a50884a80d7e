package builder

// AnalysisDocument is the upstream analyzer's output: the raw material a
// pathway is built from. The engine never produces one itself.
type AnalysisDocument struct {
	AnalysisID  string             `json:"analysis_id,omitempty"`
	Summary     string             `json:"summary"`
	VoicePrompt string             `json:"voice_prompt,omitempty"`
	Techniques  []TechniqueSection `json:"techniques,omitempty"`
	Objections  []ObjectionSection `json:"objections,omitempty"`
}

// TechniqueSection describes one sales technique, in conversation order
type TechniqueSection struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

// ObjectionSection describes one customer objection and how to handle it
type ObjectionSection struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}

// IsEmpty reports whether the document carries no conversational content
// beyond the opening
func (d AnalysisDocument) IsEmpty() bool {
	return len(d.Techniques) == 0 && len(d.Objections) == 0
}
