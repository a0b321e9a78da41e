package scoring

import "strings"

// NormalizeText lowercases s, trims it and collapses internal whitespace to single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchText compares an answer with the accepted answers of a Text question. Transcriptions
// of audio answers are judged the same way.
//
// A single accepted answer containing a space is a phrase and needs an exact normalized match
// for full credit. Otherwise the accepted answers form a bag of tokens and every answer token
// found in it earns one point, up to maxScore.
func MatchText(answer string, correct []string, maxScore int) int {
	normalized := NormalizeText(answer)
	if normalized == "" {
		return 0
	}

	if len(correct) == 1 {
		phrase := NormalizeText(correct[0])
		if strings.Contains(phrase, " ") {
			if normalized == phrase {
				return Clamp(maxScore, maxScore)
			}
			return 0
		}
	}

	accepted := make(map[string]struct{}, len(correct))
	for _, c := range correct {
		if c = NormalizeText(c); c != "" {
			accepted[c] = struct{}{}
		}
	}

	matches := 0
	for _, token := range strings.Fields(normalized) {
		if _, ok := accepted[token]; ok {
			matches++
		}
	}

	return Clamp(matches, maxScore)
}
