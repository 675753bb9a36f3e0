package prompts

// Prompts holds the user-facing prompt strings for a locale.
type Prompts struct {
	// Prescription is the instruction block placed before the patient context and
	// the physician's question. It starts and ends with a newline.
	Prescription string
}

// Get returns prompts for the given locale. Only Brazilian Portuguese exists;
// empty or unknown locales fall back to it.
func Get(locale string) *Prompts {
	return PromptsPT
}
