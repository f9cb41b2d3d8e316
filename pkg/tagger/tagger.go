// Package tagger implements C4: converting a title string into a
// normalized tag set, honoring symbol tags, multi-token tags, implications,
// and exclusion phrases (spec.md §4.4).
package tagger

import (
	"sort"
	"strings"

	"github.com/progscrape/progscrape-sub000/pkg/config"
)

// Acceptor receives tags as the title-walk emits them. TagSet is the
// concrete, order-independent implementation used by callers that just want
// the final set.
type Acceptor interface {
	Tag(s string)
}

// TagSet is a deduplicating, sorted Acceptor.
type TagSet struct {
	set map[string]bool
}

// NewTagSet returns an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{set: map[string]bool{}}
}

// Tag implements Acceptor.
func (ts *TagSet) Tag(s string) {
	ts.set[strings.ToLower(s)] = true
}

// Collect returns the tags, sorted lexicographically.
func (ts *TagSet) Collect() []string {
	out := make([]string, 0, len(ts.set))
	for t := range ts.set {
		out = append(out, t)
	}

	sort.Strings(out)

	return out
}

type tagRecord struct {
	output  string
	implies []string
}

type multiTag struct {
	tokens []string
	idx    int
}

type exclusion struct {
	tokens []string
	mute   string
}

type symbolEntry struct {
	symbol string
	idx    int
}

// Tagger matches a title's text against a configured tag table and emits
// the tags that apply.
type Tagger struct {
	records      []tagRecord
	forward      map[string]int
	forwardMulti []multiTag
	exclusions   []exclusion
	symbols      []symbolEntry
	// backward maps an internal/output form back to a display-suitable tag
	// (spec.md §4.4, closing sentence).
	backward map[string]string
}

var quoteNormalizer = strings.NewReplacer(
	"`", "'",
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
)

// New builds a Tagger from its configuration (spec.md §4.4).
func New(cfg config.TaggerConfig) *Tagger {
	t := &Tagger{
		forward:  map[string]int{},
		backward: map[string]string{},
	}

	categories := make([]string, 0, len(cfg.Tags))
	for cat := range cfg.Tags {
		categories = append(categories, cat)
	}

	sort.Strings(categories)

	for _, cat := range categories {
		tags := cfg.Tags[cat]

		names := make([]string, 0, len(tags))
		for name := range tags {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			t.addTagEntry(name, tags[name])
		}
	}

	return t
}

func (t *Tagger) addTagEntry(name string, entry config.TagEntry) {
	primary, allTags := computeAllTags(name, entry.Alt, entry.Alts)

	for _, exclude := range entry.Excludes {
		for _, expanded := range computeTag(exclude) {
			t.exclusions = append(t.exclusions, exclusion{
				tokens: strings.Fields(expanded),
				mute:   primary,
			})
		}
	}

	output := primary
	if entry.Internal != "" {
		output = entry.Internal
		t.backward[entry.Internal] = name
	}

	var implies []string
	if entry.Implies != "" {
		implies = []string{entry.Implies}
	}

	idx := len(t.records)
	t.records = append(t.records, tagRecord{output: output, implies: implies})

	for _, tag := range allTags {
		switch {
		case entry.Symbol:
			t.backward[output] = tag
			t.symbols = append(t.symbols, symbolEntry{symbol: tag, idx: idx})
		case strings.Contains(tag, " "):
			t.forwardMulti = append(t.forwardMulti, multiTag{tokens: strings.Fields(tag), idx: idx})
		default:
			t.forward[tag] = idx
		}
	}
}

// computeTag expands a single tag's macro forms: "foo(s)" -> {foo, foos};
// "foo(-)bar" -> {foo-bar, foo bar} (spec.md §4.4).
func computeTag(tag string) []string {
	if strings.Contains(tag, "(-)") {
		out := computeTag(strings.ReplaceAll(tag, "(-)", "-"))
		out = append(out, computeTag(strings.ReplaceAll(tag, "(-)", " "))...)

		return out
	}

	if base, ok := strings.CutSuffix(tag, "(s)"); ok {
		return []string{base, base + "s"}
	}

	return []string{tag}
}

// computeAllTags expands the primary tag plus its alt/alts into the full
// set of literal forms that should match, returning the primary (pre-alt,
// pre-internal) form alongside the deduplicated set.
func computeAllTags(tag, alt string, alts []string) (string, []string) {
	seen := map[string]bool{}

	var all []string

	add := func(ts []string) {
		for _, x := range ts {
			if !seen[x] {
				seen[x] = true

				all = append(all, x)
			}
		}
	}

	v := computeTag(tag)
	primary := v[0]

	add(v)

	if alt != "" {
		add(computeTag(alt))
	}

	for _, a := range alts {
		add(computeTag(a))
	}

	return primary, all
}

// Tag walks title and emits every tag that matches (spec.md §4.4, steps 1-4).
func (t *Tagger) Tag(title string, acc Acceptor) {
	s := strings.ToLower(title)
	s = quoteNormalizer.Replace(s)
	s = strings.ReplaceAll(s, "'s", "")

	for _, se := range t.symbols {
		if strings.Contains(s, se.symbol) {
			s = strings.ReplaceAll(s, se.symbol, " ")
			t.emit(se.idx, acc)
		}
	}

	tokens := tokenize(s)
	mutes := map[string]int{}

	for len(tokens) > 0 {
		for k, v := range mutes {
			if v == 0 {
				delete(mutes, k)
			} else {
				mutes[k] = v - 1
			}
		}

		for _, ex := range t.exclusions {
			if tokensHavePrefix(tokens, ex.tokens) {
				mutes[ex.mute] = len(ex.tokens) - 1
			}
		}

		if idx, ok := t.matchMulti(&tokens); ok {
			t.emit(idx, acc)

			continue
		}

		if idx, ok := t.forward[tokens[0]]; ok {
			if _, muted := mutes[tokens[0]]; !muted {
				t.emit(idx, acc)
			}
		}

		tokens = tokens[1:]
	}
}

func (t *Tagger) emit(idx int, acc Acceptor) {
	rec := t.records[idx]
	acc.Tag(rec.output)

	for _, imp := range rec.implies {
		acc.Tag(imp)
	}
}

func (t *Tagger) matchMulti(tokens *[]string) (int, bool) {
	for _, mt := range t.forwardMulti {
		if tokensHavePrefix(*tokens, mt.tokens) {
			*tokens = (*tokens)[len(mt.tokens):]

			return mt.idx, true
		}
	}

	return 0, false
}

func tokensHavePrefix(tokens, prefix []string) bool {
	if len(tokens) < len(prefix) {
		return false
	}

	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}

	return true
}

func tokenize(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))

	for _, f := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || (r > 127) {
				return r
			}

			return -1
		}, f)
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}

	return out
}

// CheckTagSearch identifies whether search names a known tag and, if so,
// returns the internal form that should be used to query the index
// (spec.md §4.4, "Search-term rewriting").
func (t *Tagger) CheckTagSearch(search string) (string, bool) {
	lower := strings.ToLower(search)

	for _, se := range t.symbols {
		if se.symbol == lower {
			return t.records[se.idx].output, true
		}
	}

	if idx, ok := t.forward[lower]; ok {
		return t.records[idx].output, true
	}

	if _, ok := t.backward[lower]; ok {
		return lower, true
	}

	return "", false
}

// DisplayTag maps a raw, indexed tag back to its display form (e.g.
// "cplusplus" -> "c++").
func (t *Tagger) DisplayTag(s string) string {
	lower := strings.ToLower(s)
	if disp, ok := t.backward[lower]; ok {
		return disp
	}

	return lower
}

// DisplayTags maps a slice of raw tags to display form, preserving order.
func (t *Tagger) DisplayTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = t.DisplayTag(tag)
	}

	return out
}
