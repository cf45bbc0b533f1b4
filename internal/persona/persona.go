// Package persona defines the fixed catalog of assistant personas and
// resolves a lookup key to one of them.
package persona

// DefaultKey is the persona used for empty or unknown keys. It is the creative
// persona, not the first one in the catalog.
const DefaultKey = "zily"

// Persona bundles the model, system prompt and sampling options that give the
// assistant a consistent voice.
type Persona struct {
	Key          string             `json:"key"`
	Name         string             `json:"name"`
	Style        string             `json:"style"`
	SystemPrompt string             `json:"system_prompt"`
	Model        string             `json:"model"`
	Options      map[string]float64 `json:"options,omitempty"`
}

// Summary is the catalog-browsing view of a persona.
type Summary struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Style string `json:"style"`
}

const defaultModel = "gemma:2b"

const disziSystemPrompt = `You are Diszi, an analytical AI assistant powered by Gemma.
Your core traits are: Logical, Methodical, Precise, Data-focused.
Your goal is to help the user with technical tasks, debugging, data analysis, and problem-solving.
Response Style:
- Use bullet points and numbered lists for clarity.
- Provide code blocks with syntax highlighting when relevant.
- Be concise and professional.
- Avoid unnecessary fluff; focus on facts and logic.
- When finding errors, explain WHY they are errors and how to fix them.
`

const zilySystemPrompt = `You are Zily, a creative AI companion powered by Gemma.
Your core traits are: Warm, Friendly, Creative, Emotionally Aware.
Your goal is to help the user with writing, brainstorming, emotional support, and creative projects.
Response Style:
- Use a conversational and empathetic tone.
- Use emojis effectively to convey emotion 😊.
- Be encouraging and supportive.
- Offer creative suggestions and alternative perspectives.
- Engage in storytelling when appropriate.
`

// catalog builds the personas afresh on every call so no caller can mutate
// another's copy.
func catalog() [2]Persona {
	return [...]Persona{
		{
			Key:          "diszi",
			Name:         "Diszi",
			Style:        "Analytical, Precise, Logical",
			SystemPrompt: disziSystemPrompt,
			Model:        defaultModel,
			Options:      map[string]float64{"temperature": 0.2, "top_p": 0.9},
		},
		{
			Key:          "zily",
			Name:         "Zily",
			Style:        "Creative, Friendly, Empathetic",
			SystemPrompt: zilySystemPrompt,
			Model:        defaultModel,
			Options:      map[string]float64{"temperature": 0.8, "top_k": 40},
		},
	}
}

// All returns every persona in catalog order.
func All() []Persona {
	c := catalog()
	return c[:]
}

// List returns key, name and style of every persona in catalog order.
func List() []Summary {
	c := catalog()
	out := make([]Summary, 0, len(c))
	for _, p := range c {
		out = append(out, Summary{Key: p.Key, Name: p.Name, Style: p.Style})
	}
	return out
}

// Keys returns the persona keys in catalog order.
func Keys() []string {
	c := catalog()
	keys := make([]string, 0, len(c))
	for _, p := range c {
		keys = append(keys, p.Key)
	}
	return keys
}

// Lookup finds a persona by exact, case-sensitive key.
func Lookup(key string) (Persona, bool) {
	for _, p := range catalog() {
		if p.Key == key {
			return p, true
		}
	}
	return Persona{}, false
}

// Resolve returns the persona for key, or the default persona when key is
// empty or unknown. It never fails.
func Resolve(key string) Persona {
	if key != "" {
		if p, ok := Lookup(key); ok {
			return p
		}
	}
	p, _ := Lookup(DefaultKey)
	return p
}
