// Package textmatch folds free-form names typed by customers (or produced by
// the language model) so they can be compared against catalog names.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a ante bajo cabe con contra de del desde en entre hacia hasta para por
		segun sin so sobre tras el la los las un una unos unas y o pero porque que como cuando donde mas
		menos muy este esta estos estas ese esa esos esas aquel aquella aquellos aquellas me te se nos os
		le les lo al quiero quisiera`) {
		stopWords[w] = struct{}{}
	}
}

// Fold lowercases s, strips diacritics and collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Equal reports whether a and b are the same after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Contains reports whether either folded string contains the other.
// Empty inputs never match.
func Contains(candidate, query string) bool {
	c, q := Fold(candidate), Fold(query)
	if c == "" || q == "" {
		return false
	}
	return strings.Contains(c, q) || strings.Contains(q, c)
}

// Keywords splits s into folded tokens, dropping Spanish stop words and
// single characters.
func Keywords(s string) []string {
	fields := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 1 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Index matches queries against a fixed option list. Keywords shared by
// every option (like "box" in "Box Chica", "Box Grande") carry no signal and
// are ignored, so "Box Inexistente" does not match "Box Chica".
type Index struct {
	options  []string
	all      []map[string]struct{}
	keywords []map[string]struct{}
	common   map[string]struct{}
}

// NewIndex builds an Index over options.
func NewIndex(options []string) *Index {
	idx := &Index{options: append([]string(nil), options...)}
	sets := make([]map[string]struct{}, len(options))
	idx.all = make([]map[string]struct{}, len(options))
	for i, opt := range options {
		sets[i] = toSet(Keywords(opt))
		idx.all[i] = toSet(Keywords(opt))
	}
	common := map[string]struct{}{}
	if len(sets) > 1 {
		for k := range sets[0] {
			shared := true
			for _, s := range sets[1:] {
				if _, ok := s[k]; !ok {
					shared = false
					break
				}
			}
			if shared {
				common[k] = struct{}{}
			}
		}
	}
	for _, s := range sets {
		for k := range common {
			delete(s, k)
		}
	}
	idx.keywords = sets
	idx.common = common
	return idx
}

// Best returns the option with the highest discriminative keyword overlap.
func (idx *Index) Best(query string) (string, bool) {
	q := toSet(Keywords(query))
	for k := range idx.common {
		delete(q, k)
	}
	if len(q) == 0 {
		return "", false
	}
	best, bestScore := "", 0.0
	for i, set := range idx.keywords {
		if len(set) == 0 {
			continue
		}
		shared := 0
		for k := range q {
			if _, ok := set[k]; ok {
				shared++
			}
		}
		score := float64(shared) / float64(max(len(q), len(set)))
		if score > bestScore {
			best, bestScore = idx.options[i], score
		}
	}
	return best, bestScore > 0
}

// Match resolves a name: every query keyword not shared by all options must
// appear in the option's own keywords. Among candidates the one with the
// fewest extra keywords wins; ties keep the earliest option.
func (idx *Index) Match(query string) (string, bool) {
	q := toSet(Keywords(query))
	for k := range idx.common {
		delete(q, k)
	}
	if len(q) == 0 {
		return "", false
	}
	best, bestExtra := "", -1
	for i, set := range idx.all {
		covered := true
		for k := range q {
			if _, ok := set[k]; !ok {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}
		extra := len(idx.keywords[i]) - len(q)
		if bestExtra < 0 || extra < bestExtra {
			best, bestExtra = idx.options[i], extra
		}
	}
	return best, bestExtra >= 0
}
