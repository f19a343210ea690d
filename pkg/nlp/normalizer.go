package nlp

import "strings"

// Filler phrases from polite Turkish requests. Multi-word phrases come
// first so "var mı" is removed before a lone "var" could be.
var stopPhrases = []string{
	"var mıydı", "var mı", "var mi", "bulunur mu", "bulunuyor mu",
	"mevcut mu", "stokta mı", "ne kadar", "kaç para",
	"acaba", "arıyorum", "istiyorum", "lazım", "gerek", "rica etsem",
	"lütfen",
}

// Possessive/plural suffix forms that the prefix rule below cannot reach
// (vowel drops, irregular stems).
var irregularNouns = map[string]string{
	"pijamının": "pijama",
	"pijamanın": "pijama",
	"takımının": "takım",
	"elbisenin": "elbise",
	"elbisesi":  "elbise",
	"şortu":     "şort",
	"şortun":    "şort",
}

// Canonical product nouns whose suffixed forms collapse to the stem:
// geceliği, geceliğin, gecelikler → gecelik. Turkish softens the final
// consonant before a vowel suffix (k→ğ), so both prefixes are checked.
var canonicalNouns = []string{
	"gecelik", "pijama", "sabahlık", "takım", "elbise", "şort",
}

var turkishFolder = strings.NewReplacer(
	"ı", "i", "ş", "s", "ç", "c", "ğ", "g", "ö", "o", "ü", "u",
)

// Normalize lowercases Turkish text, collapses informal character runs,
// strips filler phrases and reduces suffixed product nouns to their stems.
// It is pure and idempotent; empty or whitespace-only input yields "".
func Normalize(text string) string {
	s := TurkishLower(text)
	s = stripPunctuation(s)
	s = collapseRepeats(s)

	// Strip to a fixed point so removal never uncovers a new phrase.
	for {
		before := s
		for _, phrase := range stopPhrases {
			s = removePhrase(s, phrase)
		}
		if s == before {
			break
		}
	}

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = normalizeNoun(w)
	}
	return strings.Join(words, " ")
}

// Fold maps the Turkish character classes (ı/i, ş/s, ç/c, ğ/g, ö/o, ü/u)
// onto their ASCII neighbours. Used for fuzzy distance so "kirmizi" and
// "kırmızı" compare equal.
func Fold(text string) string {
	return turkishFolder.Replace(TurkishLower(text))
}

// TurkishLower lowercases with the Turkish casing rules the generic
// strings.ToLower gets wrong: İ→i and I→ı.
func TurkishLower(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case 'İ':
			b.WriteRune('i')
		case 'I':
			b.WriteRune('ı')
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// collapseRepeats shortens runs of three or more identical letters to a
// single one ("çoook" → "çok"). Genuine double letters are left alone.
func collapseRepeats(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 {
			out = append(out, runes[i])
		} else {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	return string(out)
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == 'ı' || r == 'ş' || r == 'ç' || r == 'ğ' || r == 'ö' || r == 'ü' || r == 'â' || r == 'î' || r == 'û':
			return r
		case r == ' ' || r == '\t' || r == '\n':
			return ' '
		default:
			return ' '
		}
	}, s)
}

func removePhrase(s, phrase string) string {
	words := strings.Fields(s)
	parts := strings.Fields(phrase)
	if len(parts) == 0 || len(words) < len(parts) {
		return s
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		if matchesAt(words, i, parts) {
			i += len(parts)
			continue
		}
		out = append(out, words[i])
		i++
	}
	return strings.Join(out, " ")
}

func matchesAt(words []string, i int, parts []string) bool {
	if i+len(parts) > len(words) {
		return false
	}
	for j, p := range parts {
		if words[i+j] != p {
			return false
		}
	}
	return true
}

// normalizeNoun reduces a suffixed product noun to its canonical stem.
func normalizeNoun(word string) string {
	if stem, ok := irregularNouns[word]; ok {
		return stem
	}
	for _, noun := range canonicalNouns {
		if word == noun {
			return noun
		}
		if strings.HasPrefix(word, noun) && len(word) > len(noun) {
			return noun
		}
		if soft := softenFinal(noun); soft != noun && strings.HasPrefix(word, soft) {
			return noun
		}
	}
	return word
}

// softenFinal applies Turkish consonant softening to the final letter of a
// stem (k→ğ, p→b, t→d, ç→c), the form the stem takes before vowel suffixes.
func softenFinal(noun string) string {
	runes := []rune(noun)
	if len(runes) == 0 {
		return noun
	}
	switch runes[len(runes)-1] {
	case 'k':
		runes[len(runes)-1] = 'ğ'
	case 'p':
		runes[len(runes)-1] = 'b'
	case 't':
		runes[len(runes)-1] = 'd'
	case 'ç':
		runes[len(runes)-1] = 'c'
	default:
		return noun
	}
	return string(runes)
}
