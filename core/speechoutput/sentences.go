package speechoutput

import "strings"

const defaultSentenceDelimiters = ".?!"

// splitSentences cuts text into playable sentences on the given delimiter
// runes, keeping the delimiter attached to its sentence. Text after the last
// delimiter becomes a trailing sentence of its own.
func splitSentences(text string, delimiters string) []string {
	if delimiters == "" {
		delimiters = defaultSentenceDelimiters
	}

	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if strings.ContainsRune(delimiters, r) {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}
