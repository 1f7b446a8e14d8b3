package keshavai

// Model describes one entry in the static catalog of selectable
// backend models. Configuration data only; the session manager treats
// the selected model as an opaque identifier.
type Model struct {
	ID          string
	Name        string
	Description string
	MaxTokens   int
}

// AvailableModels is the static catalog shown in the model selector.
var AvailableModels = []Model{
	{ID: "gpt-4-turbo-preview", Name: "GPT-4 Turbo", Description: "Latest GPT-4 model with enhanced capabilities", MaxTokens: 128000},
	{ID: "gpt-4", Name: "GPT-4", Description: "Highly capable model for complex tasks", MaxTokens: 8192},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Description: "Fast and cost-effective for most tasks", MaxTokens: 4096},
	{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Description: "Balanced performance for complex tasks", MaxTokens: 200000},
	{ID: "anthropic/claude-3-opus", Name: "Claude 3 Opus", Description: "Most capable Claude model", MaxTokens: 200000},
	{ID: "google/gemini-pro", Name: "Gemini Pro", Description: "Google's versatile general-purpose model", MaxTokens: 32768},
	{ID: "meta-llama/llama-3-70b-instruct", Name: "Llama 3 70B", Description: "Open-weights instruction-tuned model", MaxTokens: 8192},
}

// DefaultModel is the catalog entry selected before the user picks one.
var DefaultModel = AvailableModels[2]

// ModelByID looks up a catalog entry by identifier.
func ModelByID(id string) (Model, bool) {
	for _, m := range AvailableModels {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
