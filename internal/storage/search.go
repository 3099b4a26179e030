package storage

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Benny93/graphol-go/internal/graph"
)

var (
	separators = regexp.MustCompile(`[_\.\-:\s]+`)
	camelCase  = regexp.MustCompile(`([a-z])([A-Z])`)
)

// tokenize splits a label into lowercase search tokens. Predicate labels
// are usually camelCase or prefixed IRIs ("ex:hasChild"), so the whole
// label, its separator-delimited parts and its camelCase words all count.
func tokenize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	seen := map[string]bool{strings.ToLower(text): true}
	for _, part := range separators.Split(text, -1) {
		seen[strings.ToLower(part)] = true
		for _, word := range strings.Fields(camelCase.ReplaceAllString(part, "$1 $2")) {
			seen[strings.ToLower(word)] = true
		}
	}

	tokens := make([]string, 0, len(seen))
	for t := range seen {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// labelIndex is an in-memory inverted index from label tokens to nodes.
type labelIndex map[string][]graph.NodeID

func (idx labelIndex) add(id graph.NodeID, label string) {
	for _, t := range tokenize(label) {
		idx[t] = append(idx[t], id)
	}
}

// search scores every node by the number of query tokens it matches and
// returns the IDs best first, ties broken by ID.
func (idx labelIndex) search(query string, limit int) []scored {
	hits := make(map[graph.NodeID]int)
	for _, t := range tokenize(query) {
		for _, id := range idx[t] {
			hits[id]++
		}
	}

	results := make([]scored, 0, len(hits))
	for id, score := range hits {
		results = append(results, scored{id: id, score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

type scored struct {
	id    graph.NodeID
	score int
}
