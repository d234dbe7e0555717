package analytics

import (
	"math"
	"strings"
	"unicode"
)

// WordsPerMinute is the reading speed used for read time estimates.
const WordsPerMinute = 200

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "inc": {}, "ltd": {}, "co": {}, "corp": {},
	"e.g": {}, "i.e": {}, "u.s": {}, "u.k": {}, "no": {}, "fig": {}, "al": {},
}

// SplitSentences breaks text into trimmed sentences. Paragraph breaks always end a
// sentence; '.', '!' and '?' end one when followed by whitespace, unless the word before
// is a known abbreviation.
func SplitSentences(text string) []string {
	var sentences []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		sentences = append(sentences, splitParagraph(para)...)
	}
	return sentences
}

func splitParagraph(para string) []string {
	runes := []rune(strings.Join(strings.Fields(para), " "))
	var out []string
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && !unicode.IsSpace(runes[i+1]) && runes[i+1] != '"' && runes[i+1] != '\'' && runes[i+1] != ')' {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		end := i + 1
		if !atEnd && (runes[i+1] == '"' || runes[i+1] == '\'' || runes[i+1] == ')') {
			end = i + 2
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isAbbreviation(before []rune) bool {
	fields := strings.Fields(string(before))
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimLeft(fields[len(fields)-1], "(\"'"))
	if _, ok := abbreviations[last]; ok {
		return true
	}
	// single initials such as "J. Smith"
	return len([]rune(last)) == 1 && unicode.IsLetter([]rune(last)[0])
}

// ReadTime estimates reading minutes at WordsPerMinute, never less than one.
func ReadTime(wordCount int) int {
	minutes := int(math.Ceil(float64(wordCount) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "positive": {}, "benefit": {}, "benefits": {},
	"improve": {}, "improves": {}, "improved": {}, "improvement": {}, "success": {},
	"successful": {}, "effective": {}, "promising": {}, "growth": {}, "gain": {}, "gains": {},
	"advance": {}, "advances": {}, "breakthrough": {}, "innovative": {}, "innovation": {},
	"opportunity": {}, "opportunities": {}, "efficient": {}, "efficiency": {}, "strong": {},
	"better": {}, "best": {}, "win": {}, "wins": {}, "happy": {}, "hope": {}, "hopeful": {},
	"optimistic": {}, "progress": {}, "revolutionizing": {}, "transforming": {}, "accurate": {},
	"reliable": {}, "safe": {}, "thriving": {}, "boost": {}, "boosts": {}, "achieve": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "poor": {}, "negative": {}, "risk": {}, "risks": {}, "threat": {}, "threats": {},
	"fail": {}, "fails": {}, "failed": {}, "failure": {}, "decline": {}, "declines": {},
	"loss": {}, "losses": {}, "crisis": {}, "problem": {}, "problems": {}, "concern": {},
	"concerns": {}, "worse": {}, "worst": {}, "danger": {}, "dangerous": {}, "harm": {},
	"harmful": {}, "damage": {}, "attack": {}, "attacks": {}, "costly": {}, "weak": {},
	"fear": {}, "fears": {}, "challenge": {}, "challenges": {}, "difficult": {}, "lawsuit": {},
	"fraud": {}, "breach": {}, "collapse": {}, "shortage": {}, "death": {}, "deaths": {},
}

// Sentiment scores text with a small lexicon and returns positive, neutral or negative.
func Sentiment(text string) string {
	pos, neg := 0, 0
	for _, w := range Tokenize(text) {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return SentimentNeutral
	}
	score := float64(pos-neg) / float64(pos+neg)
	switch {
	case score > 0.2:
		return SentimentPositive
	case score < -0.2:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Complexity labels.
const (
	ComplexityBeginner     = "Beginner"
	ComplexityIntermediate = "Intermediate"
	ComplexityAdvanced     = "Advanced"
	ComplexityExpert       = "Expert"
)

// Complexity grades text from average sentence length and the share of long words.
func Complexity(text string) string {
	sentences := SplitSentences(text)
	words := Tokenize(text)
	if len(sentences) == 0 || len(words) == 0 {
		return ComplexityBeginner
	}

	long := 0
	for _, w := range words {
		if len([]rune(w)) >= 9 {
			long++
		}
	}

	avgSentence := float64(len(words)) / float64(len(sentences))
	longRatio := float64(long) / float64(len(words))
	score := avgSentence/4 + longRatio*20

	switch {
	case score < 6:
		return ComplexityBeginner
	case score < 9:
		return ComplexityIntermediate
	case score < 12:
		return ComplexityAdvanced
	default:
		return ComplexityExpert
	}
}
