package tagger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/tagger"
)

func testConfig() config.TaggerConfig {
	return config.TaggerConfig{
		Tags: map[string]map[string]config.TagEntry{
			"testing": {
				"video(s)": {},
				"rust":     {},
				"chrome":   {Alt: "chromium"},
				"neovim":   {Implies: "vim"},
				"vim":      {},
				"3d": {
					Alts: []string{
						"3(-)d", "3(-)dimension(s)", "three(-)d",
						"three(-)dimension(s)", "three(-)dimensional", "3(-)dimensional",
					},
				},
				"usbc":    {Alt: "usb(-)c"},
				"at&t":    {Internal: "atandt", Symbol: true},
				"angular": {Alt: "angularjs"},
				"vi":      {Internal: "vieditor"},
				"go": {
					Alt: "golang", Internal: "golang",
					Excludes: []string{
						"can go", "will go", "to go", "go to", "go in",
						"go into", "let go", "letting go", "go home",
					},
				},
				"c":    {Internal: "clanguage"},
				"d":    {Internal: "dlanguage", Excludes: []string{"vitamin d", "d wave", "d waves"}},
				"c++":  {Internal: "cplusplus", Symbol: true},
				"c#":   {Internal: "csharp", Symbol: true},
				"f#":   {Internal: "fsharp", Symbol: true},
				".net": {Internal: "dotnet", Symbol: true},
			},
		},
	}
}

func newTagger(t *testing.T) *tagger.Tagger {
	t.Helper()

	return tagger.New(testConfig())
}

func TestDisplayTags(t *testing.T) {
	t.Parallel()

	tg := newTagger(t)

	got := tg.DisplayTags([]string{"atandt", "cplusplus", "clanguage", "rust"})
	assert.Equal(t, []string{"at&t", "c++", "c", "rust"}, got)
}

func TestSearchMapping(t *testing.T) {
	t.Parallel()

	tg := newTagger(t)

	tests := []struct {
		want  string
		forms []string
	}{
		{"cplusplus", []string{"c++", "cplusplus"}},
		{"clanguage", []string{"c", "clanguage"}},
		{"atandt", []string{"at&t", "atandt"}},
		{"angular", []string{"angular", "angularjs"}},
		{"golang", []string{"go", "golang"}},
		{"dotnet", []string{".net", "dotnet"}},
	}

	for _, tt := range tests {
		for _, form := range tt.forms {
			got, ok := tg.CheckTagSearch(form)
			require.True(t, ok, "expected a match for %q", form)
			assert.Equal(t, tt.want, got, "mismatch for %q", form)
		}
	}
}

func TestTagExtraction(t *testing.T) {
	t.Parallel()

	tg := newTagger(t)

	tests := []struct {
		title string
		want  []string
	}{
		{"I love rust!", []string{"rust"}},
		{"Good old video", []string{"video"}},
		{"Good old videos", []string{"video"}},
		{"Chromium is a project", []string{"chrome"}},
		{"AngularJS is fun", []string{"angular"}},
		{"Chromium is the open Chrome", []string{"chrome"}},
		{"Neovim is kind of cool", []string{"neovim", "vim"}},
		{"Neovim is a kind of vim", []string{"neovim", "vim"}},
		{"C is hard", []string{"clanguage"}},
		{"D is hard", []string{"dlanguage"}},
		{"C# is hard", []string{"csharp"}},
		{"C++ is hard", []string{"cplusplus"}},
		{"AT&T has an ampersand", []string{"atandt"}},
		{"Usbc.wtf - an article and quiz to find the right USB-C cable", []string{"usbc"}},
		{"D&D Publisher Addresses Backlash Over Controversial License", nil},
		{"Microfeatures I'd like to see in more languages", nil},
		{"What are companies doing with D-Wave's quantum hardware?", nil},
		{"What are companies doing with D Wave's quantum hardware?", nil},
		{"Rewriting TypeScript in Rust? You'd have to be crazy", []string{"rust"}},
		{"Vitamin D Supplementation Does Not Influence Growth in Children", nil},
		{"Vitamin-D Supplementation Does Not Influence Growth in Children", nil},
		{"They'd rather not", nil},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()

			ts := tagger.NewTagSet()
			tg.Tag(tt.title, ts)

			got := ts.Collect()
			if tt.want == nil {
				assert.Empty(t, got, "title %q", tt.title)
			} else {
				assert.Equal(t, tt.want, got, "title %q", tt.title)
			}
		})
	}
}
