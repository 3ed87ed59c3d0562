// Package source provides adapters for the five external stores Munin syncs
// from: the roadmap text, the question store, the decision store, the
// assessment envelopes, and the chunk store.
//
// Each adapter is read-only from Munin's point of view (the chunk store also
// accepts writes from the chunking collaborator) and deals in the typed
// records from pkg/artifact. Failures surface as ordinary errors; the sync
// orchestrator isolates them per stage.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/muninhq/munin/pkg/artifact"
)

// ErrSourceMissing marks a source file or directory that does not exist.
// The orchestrator treats it as "nothing to sync" for optional sources.
var ErrSourceMissing = errors.New("source missing")

// RoadmapFile reads and parses a roadmap markdown file.
//
// Returns ErrSourceMissing (wrapped) when the file does not exist.
func RoadmapFile(path string) ([]*artifact.RoadmapItem, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("roadmap %s: %w", path, ErrSourceMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("reading roadmap: %w", err)
	}
	return ParseRoadmap(string(data)), nil
}

// ParseRoadmap extracts roadmap items from markdown text.
//
// The parser locates horizon section headers (now/next/later/future, any
// heading level, case-insensitive) and item headers beneath them. Each item
// header is paired with the following body text as its description. A body
// line of the form "Depends on: a, b" populates the item's dependencies.
//
// Example input:
//
//	## Now
//	### Streaming ingest
//	Move the ingest pipeline to streaming.
//	Depends on: Schema registry
//
//	## Later
//	### Multi-region
//	...
//
// Item ids are slugs of the item name prefixed with "roadmap-", so the same
// roadmap text always yields the same ids.
func ParseRoadmap(text string) []*artifact.RoadmapItem {
	var items []*artifact.RoadmapItem
	var current *artifact.RoadmapItem
	var horizon artifact.Horizon
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(body, "\n"))
		items = append(items, current)
		current = nil
		body = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if h, ok := parseHorizon(heading); ok {
				flush()
				horizon = h
				continue
			}
			if horizon != "" && heading != "" {
				flush()
				current = &artifact.RoadmapItem{
					ID:      "roadmap-" + Slugify(heading),
					Name:    heading,
					Horizon: horizon,
				}
			}
			continue
		}

		if current == nil {
			continue
		}
		if deps, ok := strings.CutPrefix(trimmed, "Depends on:"); ok {
			for _, dep := range strings.Split(deps, ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					current.DependsOn = append(current.DependsOn, dep)
				}
			}
			continue
		}
		body = append(body, line)
	}
	flush()

	return items
}

func parseHorizon(heading string) (artifact.Horizon, bool) {
	switch strings.ToLower(heading) {
	case "now":
		return artifact.HorizonNow, true
	case "next":
		return artifact.HorizonNext, true
	case "later":
		return artifact.HorizonLater, true
	case "future":
		return artifact.HorizonFuture, true
	}
	return "", false
}

// Slugify lowercases s and collapses every non-alphanumeric run into a
// single hyphen. Used to derive stable ids for parsed roadmap items.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
