package scrape

import (
	"encoding/json"
	"fmt"

	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
)

// envelope is the on-disk tagged-variant form of a Record (spec.md §9:
// "prefer a tagged-variant representation for storage").
type envelope struct {
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal serializes a Record to its tagged-variant wire form.
func Marshal(r Record) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, storyerr.New(storyerr.SerializationError, fmt.Errorf("scrape: marshal %s: %w", r.ID(), err))
	}

	env := envelope{Source: r.ID().Source.String(), Payload: payload}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, storyerr.New(storyerr.SerializationError, fmt.Errorf("scrape: marshal envelope: %w", err))
	}

	return out, nil
}

// Unmarshal decodes a Record from its tagged-variant wire form, dispatching
// on the envelope's source tag to the concrete variant type.
func Unmarshal(data []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, storyerr.New(storyerr.SerializationError, fmt.Errorf("scrape: unmarshal envelope: %w", err))
	}

	source, err := storyid.ParseSource(env.Source)
	if err != nil {
		return nil, storyerr.New(storyerr.SerializationError, fmt.Errorf("scrape: unknown source in envelope: %w", err))
	}

	var rec Record

	switch source {
	case storyid.HackerNews:
		var h HackerNews
		err = json.Unmarshal(env.Payload, &h)
		rec = h
	case storyid.Lobsters:
		var l Lobsters
		err = json.Unmarshal(env.Payload, &l)
		rec = l
	case storyid.Reddit:
		var r Reddit
		err = json.Unmarshal(env.Payload, &r)
		rec = r
	case storyid.Slashdot:
		var s Slashdot
		err = json.Unmarshal(env.Payload, &s)
		rec = s
	case storyid.Feed, storyid.Other:
		var f Feed
		err = json.Unmarshal(env.Payload, &f)
		rec = f
	default:
		return nil, storyerr.New(storyerr.NotMappable, fmt.Errorf("scrape: unhandled source %v", source))
	}

	if err != nil {
		return nil, storyerr.New(storyerr.SerializationError, fmt.Errorf("scrape: unmarshal payload: %w", err))
	}

	return rec, nil
}
