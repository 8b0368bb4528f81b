package policy

// Keyword phrases per candidate policy, English and Polish.
// They are normalized like query text before matching.

var factKeywords = []string{
	"what is", "who is", "where", "when", "how many", "how much", "how long",
	"definition", "date", "year", "number", "value", "percent", "percentage",
	"statistic", "revenue", "price", "amount", "total", "rate", "is it true",
	"true or false", "founder", "ceo", "capital", "population", "name of", "author of",
	"co to jest", "czym jest", "kim jest", "gdzie", "kiedy", "ile", "jak dużo",
	"definicja", "data", "rok", "liczba", "wartość", "procent", "statystyka",
	"czy to prawda", "prawda czy fałsz", "autor", "założyciel", "prezes",
	"stolica", "populacja", "ludność",
}

var graphKeywords = []string{
	"related to", "relation", "relationship", "connection", "connected", "link between",
	"influence", "influences", "impact on", "depends on", "dependency", "cause", "effect",
	"between", "path from", "how is", "associated with", "network", "hierarchy",
	"compare", "difference", "similarity",
	"związek", "relacja", "powiązanie", "połączenie", "zależność", "wpływ",
	"oddziaływanie", "przyczyna", "skutek", "między", "pomiędzy", "hierarchia",
	"porównaj", "różnica", "podobieństwo", "jak się łączy", "jak wpływa",
}

var textKeywords = []string{
	"describe", "explain", "overview", "summarize", "how does", "how do", "why",
	"mechanism", "process", "procedure", "method", "technique", "context",
	"background", "history", "evolution", "origin", "purpose", "role",
	"opisz", "wyjaśnij", "przedstaw", "scharakteryzuj", "omów", "jak działa",
	"proces", "metoda", "kontekst", "historia", "rozwój", "geneza", "dlaczego",
	"cel", "rola", "funkcja",
}

var hybridKeywords = []string{
	"comprehensive", "everything about", "all about", "full picture", "in depth",
	"in detail", "analyze", "analysis", "evaluate", "assessment",
	"kompleksowo", "wszystko o", "szczegółowo", "analiza", "przeanalizuj", "oceń",
}

var comparisonKeywords = []string{
	"more than", "less than", "greater than", "higher than", "lower than",
	"compared to", "versus", "vs", "increase", "decrease", "growth",
	"więcej niż", "mniej niż", "wzrost", "spadek",
}

var relationalPhrases = []string{
	"related to", "influences", "influence", "connected to", "linked to", "impact on",
	"związany z", "wpływa na", "powiązany z",
}

var descriptivePhrases = []string{
	"describe", "explain", "how does", "why", "opisz", "wyjaśnij", "jak działa", "dlaczego",
}
