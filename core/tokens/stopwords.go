package tokens

var stopWords = map[string]bool{
	// English
	"the": true, "and": true, "for": true, "are": true, "was": true, "were": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true, "when": true,
	"where": true, "why": true, "how": true, "this": true, "that": true, "these": true,
	"those": true, "with": true, "from": true, "into": true, "about": true, "does": true,
	"did": true, "has": true, "have": true, "had": true, "been": true, "being": true,
	"can": true, "could": true, "should": true, "would": true, "will": true, "shall": true,
	"its": true, "their": true, "there": true, "than": true, "then": true, "them": true,
	"you": true, "your": true, "our": true, "not": true, "but": true, "any": true,
	"all": true, "some": true, "such": true, "also": true, "between": true, "tell": true,
	"please": true, "explain": true, "describe": true,
	// Polish (diacritics folded)
	"jak": true, "jaki": true, "jaka": true, "jakie": true, "czy": true, "ktory": true,
	"ktora": true, "ktore": true, "dla": true, "oraz": true, "jest": true, "sa": true,
	"był": true, "była": true, "było": true, "przez": true, "miedzy": true, "nad": true,
	"pod": true, "tak": true, "nie": true, "sie": true, "ten": true, "ta": true,
	"to": true, "tym": true, "tego": true, "jego": true, "jej": true, "ich": true,
	"kto": true, "co": true, "gdzie": true, "kiedy": true, "dlaczego": true,
}

// IsStopWord reports whether a normalized token carries no retrieval signal.
func IsStopWord(token string) bool {
	return stopWords[token]
}
