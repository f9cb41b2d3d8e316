package storyurl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

// TestNormalizationSame ports urlnormalizer.rs's test_url_normalization_same:
// pairs that must canonicalize identically.
func TestNormalizationSame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
	}{
		{"scheme is irrelevant", "http://google.com", "https://google.com"},
		{"www prefix stripped", "https://www.google.com", "https://google.com"},
		{"html extension stripped", "https://www.google.com/foo.html", "https://www.google.com/foo"},
		{"empty query/fragment", "https://www.google.com/?#", "https://www.google.com"},
		{"trailing slash", "https://www.google.com/", "https://www.google.com"},
		{"trailing slash on path", "https://www.google.com/foo", "https://www.google.com/foo/"},
		{"multiple slashes", "https://www.google.com//foo", "https://www.google.com/foo"},
		{"utm source dropped", "http://x.com?utm_source=foo", "http://x.com"},
		{"fbclid and gclid dropped", "http://x.com?fbclid=foo&gclid=bar", "http://x.com"},
		{"fbclid value irrelevant", "http://x.com?fbclid=foo", "http://x.com?fbclid=basdf"},
		{"fragment ignored", "http://x.com", "http://x.com#something"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			na, err := storyurl.Normalize(tt.a)
			require.NoError(t, err)

			nb, err := storyurl.Normalize(tt.b)
			require.NoError(t, err)

			assert.Equal(t, na.Canonical, nb.Canonical)
			assert.Equal(t, na.Hash, nb.Hash)
		})
	}
}

// TestNormalizationDifferent ports test_url_normalization_different.
func TestNormalizationDifferent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
	}{
		{"different host", "http://1.2.3.4", "http://1.2.3.5"},
		{"different domain", "https://google.com", "https://facebook.com"},
		{"different path", "https://google.com/abs", "https://google.com/def"},
		{"different query value", "https://google.com/?page=1", "https://google.com/?page=2"},
		{"arxiv ids differ", "http://arxiv.org/abs/1405.0126", "http://arxiv.org/abs/1405.0351"},
		{
			"bmj content ids differ",
			"http://www.bmj.com/content/360/bmj.j5855",
			"http://www.bmj.com/content/360/bmj.k322",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			na, err := storyurl.Normalize(tt.a)
			require.NoError(t, err)

			nb, err := storyurl.Normalize(tt.b)
			require.NoError(t, err)

			assert.NotEqual(t, na.Canonical, nb.Canonical)
		})
	}
}

func TestNormalizationDeterministic(t *testing.T) {
	t.Parallel()

	const raw = "https://www.example.com/foo/bar.html?b=2&a=1&utm_source=x#!deep/link"

	n1, err := storyurl.Normalize(raw)
	require.NoError(t, err)

	n2, err := storyurl.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Positive(t, n1.Hash, "hash must be non-negative (low 63 bits)")
}

func TestNormalizationHashBangFragment(t *testing.T) {
	t.Parallel()

	n, err := storyurl.Normalize("https://groups.google.com/forum/#!topic/mailing.postfix.users/6Kkel3J_nv4")
	require.NoError(t, err)

	assert.Contains(t, n.Tokens, "topic/mailing.postfix.users/6Kkel3J_nv4")
}

func TestNormalizationRequiresHost(t *testing.T) {
	t.Parallel()

	_, err := storyurl.Normalize("/just/a/path")
	assert.ErrorIs(t, err, storyurl.ErrHostRequired)
}

func TestNewStoryURL(t *testing.T) {
	t.Parallel()

	u, err := storyurl.New("http://www.Example.com/a/b.php3?utm_campaign=x&z=1")
	require.NoError(t, err)

	assert.Equal(t, "example.com", u.Host)
	assert.Equal(t, "example.com:a:b:z:1:", u.Norm.Canonical)
}
