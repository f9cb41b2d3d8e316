package shardedindex

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
	"github.com/progscrape/progscrape-sub000/pkg/storycollector"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyindex"
)

// recencyTweak is the per-result age penalty in the generic search ranking
// formula (spec.md §4.10): "(now - doc_date) * -0.00001".
const recencyTweak = -0.00001

// StoryQuery is C10's query sum type (spec.md §4.10).
type StoryQuery struct {
	kind   queryKind
	id     storyid.StoryIdentifier
	shard  shard.Shard
	tag    string
	domain string
	text   string
}

type queryKind int

const (
	byID queryKind = iota
	byShard
	frontPage
	tagSearch
	domainSearch
	textSearch
)

func ByID(id storyid.StoryIdentifier) StoryQuery { return StoryQuery{kind: byID, id: id} }
func ByShard(sh shard.Shard) StoryQuery           { return StoryQuery{kind: byShard, shard: sh} }
func FrontPage() StoryQuery                       { return StoryQuery{kind: frontPage} }
func TagSearch(tag string) StoryQuery             { return StoryQuery{kind: tagSearch, tag: tag} }
func DomainSearch(domain string) StoryQuery       { return StoryQuery{kind: domainSearch, domain: domain} }
func TextSearch(text string) StoryQuery           { return StoryQuery{kind: textSearch, text: text} }

// Planner runs StoryQuery values against an Index (spec.md §4.10).
type Planner struct {
	idx *Index
	max int
}

// NewPlanner builds a planner that returns up to max results per query.
func NewPlanner(idx *Index, max int) *Planner {
	return &Planner{idx: idx, max: max}
}

// FetchAddresses runs q and returns the matching documents, each tagged
// with its owning shard: searches and the front page in descending score
// order, a shard listing in ascending date order.
func (p *Planner) FetchAddresses(ctx context.Context, q StoryQuery) ([]shard.Shard, []storyindex.Document, error) {
	switch q.kind {
	case byID:
		return p.fetchByID(q.id)
	case byShard:
		return p.fetchByShard(q.shard)
	case frontPage:
		return p.fetchFrontPage(ctx)
	case tagSearch:
		tq := bleve.NewTermQuery(q.tag)
		tq.SetField("tags")

		return p.fetchGeneric(ctx, tq)
	case domainSearch:
		return p.fetchDomain(ctx, q.domain)
	case textSearch:
		return p.fetchText(ctx, q.text)
	default:
		return nil, nil, storyerr.Newf(storyerr.NotMappable, "shardedindex: unknown query kind %d", q.kind)
	}
}

func (p *Planner) fetchByID(id storyid.StoryIdentifier) ([]shard.Shard, []storyindex.Document, error) {
	sh := id.Shard()

	s, err := p.idx.getOrOpenShard(sh)
	if err != nil {
		return nil, nil, err
	}

	doc, ok, err := s.LookupByID(id.String())
	if err != nil {
		return nil, nil, err
	}

	if !ok {
		return nil, nil, nil
	}

	return []shard.Shard{sh}, []storyindex.Document{doc}, nil
}

func (p *Planner) fetchByShard(sh shard.Shard) ([]shard.Shard, []storyindex.Document, error) {
	s, err := p.idx.getOrOpenShard(sh)
	if err != nil {
		return nil, nil, err
	}

	docs, err := s.AllIDsByDate(p.max)
	if err != nil {
		return nil, nil, err
	}

	shards := make([]shard.Shard, len(docs))
	for i := range docs {
		shards[i] = sh
	}

	return shards, docs, nil
}

// fetchGeneric implements spec.md §4.10's "generic search ranking": scan
// shards newest-to-oldest, tweak each hit's score by recency, accumulate
// into a bounded collector until max results are gathered.
func (p *Planner) fetchGeneric(ctx context.Context, q query.Query) ([]shard.Shard, []storyindex.Document, error) {
	now, err := p.idx.MostRecentStory(ctx)
	if err != nil {
		return nil, nil, err
	}

	r := p.idx.ShardRange()
	if r.Empty() {
		return nil, nil, nil
	}

	type entry struct {
		sh  shard.Shard
		doc storyindex.Document
	}

	coll := storycollector.New[entry](p.max)

	for sh := r.Max; sh >= r.Min; sh = sh.SubMonths(1) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		s, err := p.idx.getOrOpenShard(sh)
		if err != nil {
			return nil, nil, err
		}

		tweak := func(doc storyindex.Document, base float64) float64 {
			age := now.Unix() - doc.Date
			return doc.Score + base + float64(age)*recencyTweak
		}

		hits, err := s.Search(q, p.max, tweak)
		if err != nil {
			return nil, nil, err
		}

		for _, h := range hits {
			coll.Accept(h.Score, entry{sh: sh, doc: h.Doc})
		}

		if coll.Len() >= p.max {
			break
		}
	}

	sorted := coll.ToSorted()
	shards := make([]shard.Shard, len(sorted))
	docs := make([]storyindex.Document, len(sorted))

	for i, item := range sorted {
		shards[i] = item.Value.sh
		docs[i] = item.Value.doc
	}

	return shards, docs, nil
}

func (p *Planner) fetchText(ctx context.Context, text string) ([]shard.Shard, []storyindex.Document, error) {
	q := bleve.NewDisjunctionQuery(
		fieldMatchQuery("title", text),
		fieldMatchQuery("tags", text),
	)

	return p.fetchGeneric(ctx, q)
}

func fieldMatchQuery(field, text string) query.Query {
	mq := bleve.NewMatchQuery(text)
	mq.SetField(field)

	return mq
}

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// fetchDomain implements spec.md §4.10's DomainSearch: if d looks like it
// has a scheme (contains ":"), parse it as a URL and use its host;
// otherwise prefix "http://" first. The resulting host is split on
// non-alphanumerics and phrase-matched against the host field.
func (p *Planner) fetchDomain(ctx context.Context, d string) ([]shard.Shard, []storyindex.Document, error) {
	raw := d
	if !strings.Contains(d, ":") {
		raw = "http://" + d
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, nil, storyerr.New(storyerr.QueryParseError, fmt.Errorf("shardedindex: parse domain %q: %w", d, err))
	}

	host := u.Hostname()
	if host == "" {
		host = d
	}

	terms := nonAlnumRe.Split(host, -1)

	mq := bleve.NewMatchPhraseQuery(strings.Join(terms, " "))
	mq.SetField("host")

	return p.fetchGeneric(ctx, mq)
}

// fetchFrontPage implements spec.md §4.10's front-page algorithm: scan the
// most recent three shards for up to 2*max documents ordered by date
// descending, offering each to a bounded collector by its stored score.
func (p *Planner) fetchFrontPage(ctx context.Context) ([]shard.Shard, []storyindex.Document, error) {
	r := p.idx.ShardRange()
	if r.Empty() {
		return nil, nil, nil
	}

	type entry struct {
		sh  shard.Shard
		doc storyindex.Document
	}

	target := 2 * p.max
	coll := storycollector.New[entry](p.max)

	processed := 0
	sh := r.Max

	for i := 0; i < 3 && sh >= r.Min && processed < target; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		s, err := p.idx.getOrOpenShard(sh)
		if err != nil {
			return nil, nil, err
		}

		docs, err := s.RecentByDate(target - processed)
		if err != nil {
			return nil, nil, err
		}

		for _, doc := range docs {
			processed++

			if coll.WouldAccept(doc.Score) {
				coll.Accept(doc.Score, entry{sh: sh, doc: doc})
			}
		}

		sh = sh.SubMonths(1)
	}

	sorted := coll.ToSorted()
	shards := make([]shard.Shard, len(sorted))
	docs := make([]storyindex.Document, len(sorted))

	for i, item := range sorted {
		shards[i] = item.Value.sh
		docs[i] = item.Value.doc
	}

	return shards, docs, nil
}

// Story is the downstream-facing projection of a matched document,
// spec.md §6's "Story<T>" contract. Scrapes carries compact references by
// default (ScrapeID); Hydrate replaces them with full records from C3.
type Story[T any] struct {
	ID           string
	Order        int
	Score        float64
	URL          string
	URLNorm      string
	URLNormHash  int64
	Domain       string
	Title        string
	Date         time.Time
	Tags         []string
	CommentLinks map[storyid.Source]string
	Scrapes      map[storyid.ScrapeID]T
}

func toStory(order int, doc storyindex.Document) Story[storyid.ScrapeID] {
	scrapes := make(map[storyid.ScrapeID]storyid.ScrapeID, len(doc.ScrapeIDs))
	links := map[storyid.Source]string{}

	for _, raw := range doc.ScrapeIDs {
		id, err := storyid.ParseScrapeID(raw)
		if err != nil {
			continue
		}

		scrapes[id] = id

		if link, ok := commentLink(id); ok {
			links[id.Source] = link
		}
	}

	return Story[storyid.ScrapeID]{
		ID: doc.ID, Order: order, Score: doc.Score,
		URL: doc.URL, URLNorm: doc.URLNorm, URLNormHash: doc.URLNormHash,
		Domain: doc.Host, Title: doc.Title, Date: time.Unix(doc.Date, 0).UTC(),
		Tags: doc.Tags, CommentLinks: links, Scrapes: scrapes,
	}
}

func commentLink(id storyid.ScrapeID) (string, bool) {
	switch id.Source {
	case storyid.HackerNews:
		return "https://news.ycombinator.com/item?id=" + id.LocalID, true
	case storyid.Lobsters:
		return "https://lobste.rs/s/" + id.LocalID, true
	case storyid.Slashdot:
		return "", false
	case storyid.Reddit:
		return "", false
	default:
		return "", false
	}
}

// Fetch runs q and projects every result to a compact Story (spec.md §6,
// "Story<Shard>").
func (p *Planner) Fetch(ctx context.Context, q StoryQuery) ([]Story[storyid.ScrapeID], error) {
	_, docs, err := p.FetchAddresses(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]Story[storyid.ScrapeID], len(docs))
	for i, doc := range docs {
		out[i] = toStory(i, doc)
	}

	return out, nil
}

// FetchOne returns the single best-ranked result, if any.
func (p *Planner) FetchOne(ctx context.Context, q StoryQuery) (Story[storyid.ScrapeID], bool, error) {
	stories, err := p.Fetch(ctx, q)
	if err != nil || len(stories) == 0 {
		return Story[storyid.ScrapeID]{}, false, err
	}

	return stories[0], true, nil
}

// FetchCount returns the number of addresses q resolves to, without
// projecting them.
func (p *Planner) FetchCount(ctx context.Context, q StoryQuery) (int, error) {
	_, docs, err := p.FetchAddresses(ctx, q)
	if err != nil {
		return 0, err
	}

	return len(docs), nil
}

// FetchDetail returns the stored document of the first result of
// FetchAddresses, for admin inspection.
func (p *Planner) FetchDetail(ctx context.Context, q StoryQuery) (storyindex.Document, bool, error) {
	_, docs, err := p.FetchAddresses(ctx, q)
	if err != nil || len(docs) == 0 {
		return storyindex.Document{}, false, err
	}

	return docs[0], true, nil
}

// FetchHydrated runs q and hydrates each result's scrapes with the full
// raw records from C3 (spec.md §6, "Story<TypedScrape>").
func (p *Planner) FetchHydrated(ctx context.Context, q StoryQuery) ([]Story[scrape.Record], error) {
	shards, docs, err := p.FetchAddresses(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]Story[scrape.Record], len(docs))

	for i, doc := range docs {
		compact := toStory(i, doc)

		hydrated := Story[scrape.Record]{
			ID: compact.ID, Order: compact.Order, Score: compact.Score,
			URL: compact.URL, URLNorm: compact.URLNorm, URLNormHash: compact.URLNormHash,
			Domain: compact.Domain, Title: compact.Title, Date: compact.Date,
			Tags: compact.Tags, CommentLinks: compact.CommentLinks,
			Scrapes: map[storyid.ScrapeID]scrape.Record{},
		}

		for id := range compact.Scrapes {
			rec, err := p.idx.store.FetchNear(ctx, id, shards[i], neighborWindow)
			if err != nil {
				continue
			}

			hydrated.Scrapes[id] = rec
		}

		out[i] = hydrated
	}

	return out, nil
}
