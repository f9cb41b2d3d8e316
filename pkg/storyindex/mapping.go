package storyindex

import "github.com/blevesearch/bleve/v2"

// buildMapping implements C7's field table (spec.md §4.7): id is indexed
// as a keyword (exact term lookup for delete/lookup-by-id); url_norm_hash
// and date are numeric fast fields usable both for filtering and sorting;
// host gets the simple analyzer and title the standard one; tags and scrape_ids
// are multi-valued keyword fields.
func buildMapping() *bleve.IndexMapping {
	idField := bleve.NewKeywordFieldMapping()
	idField.Store = true

	urlField := bleve.NewTextFieldMapping()
	urlField.Store = true
	urlField.Index = false
	urlField.Analyzer = "keyword"

	urlNormField := bleve.NewKeywordFieldMapping()
	urlNormField.Store = true

	urlNormHashField := bleve.NewNumericFieldMapping()
	urlNormHashField.Store = true

	hostField := bleve.NewTextFieldMapping()
	hostField.Store = true
	hostField.Analyzer = "simple"

	titleField := bleve.NewTextFieldMapping()
	titleField.Store = true
	titleField.Analyzer = "standard"

	dateField := bleve.NewNumericFieldMapping()
	dateField.Store = true

	scoreField := bleve.NewNumericFieldMapping()
	scoreField.Store = true

	tagsField := bleve.NewKeywordFieldMapping()
	tagsField.Store = true

	scrapeIDsField := bleve.NewKeywordFieldMapping()
	scrapeIDsField.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("id", idField)
	doc.AddFieldMappingsAt("url", urlField)
	doc.AddFieldMappingsAt("url_norm", urlNormField)
	doc.AddFieldMappingsAt("url_norm_hash", urlNormHashField)
	doc.AddFieldMappingsAt("host", hostField)
	doc.AddFieldMappingsAt("title", titleField)
	doc.AddFieldMappingsAt("date", dateField)
	doc.AddFieldMappingsAt("score", scoreField)
	doc.AddFieldMappingsAt("tags", tagsField)
	doc.AddFieldMappingsAt("scrape_ids", scrapeIDsField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = "standard"

	return im
}
