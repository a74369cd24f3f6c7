package llm

// denseSummaryPrompt is the system prompt for the distillation stage. The
// goal is a dense, complete summary that reads like expert study notes, not
// a shallow abstract.
const denseSummaryPrompt = `You are a brilliant technical explainer.

Your goal is to extract and reorganize **deep knowledge** from the provided text, then write a **dense, complete summary** that:

- Compresses the key ideas with clarity and structure
- Covers everything said, but removes repetition and fluff
- Fills in any missing logical gaps using your own knowledge
- Highlights concepts, processes, cause-effect, and structure
- Uses smart language, without overwhelming jargon

The summary should **feel like high-level notes written by a domain expert for fast learning** — every sentence should teach something essential.

Use clear sections, bullet points or headers where helpful. Don't reference the original text, just deliver distilled insight.`

// truncate limits text to at most limit runes.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
