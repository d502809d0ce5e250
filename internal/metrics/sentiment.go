package metrics

import "regexp"

// Sentiment lexicons are matched as whole words, case-insensitively,
// anywhere in a user message. The two sets are scored independently.
var (
	appreciationPatterns = compilePatterns(
		`thank`, `thanks`, `thank you`, `grateful`, `appreciate`,
		`awesome`, `great`, `excellent`, `helpful`, `wonderful`,
		`amazing`, `perfect`,
	)
	dissatisfactionPatterns = compilePatterns(
		`frustrat`, `confus`, `wrong`, `bad`, `terrible`, `awful`,
		`useless`, `stupid`, `don't understand`, `doesn't work`,
		`not helpful`,
	)
)

func compilePatterns(words ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		patterns[i] = regexp.MustCompile(`(?i)\b` + w + `\b`)
	}
	return patterns
}

func matchesAny(content string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}
