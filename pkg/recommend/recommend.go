// Package recommend implements the auto-continuation policy invoked when
// the playback queue runs dry. It asks the search gateway for tracks
// related to the current one, falls back to a keyword search built from the
// current title, and filters the combined pool against everything already
// played or queued. Errors never escape: the policy downgrades every
// failure to "no recommendations" so a playback transition can never fail
// on its account.
package recommend

import (
	"context"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/metrics"
	"hungify/pkg/music"
)

// stopWords are dropped when extracting search keywords from a title.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Policy fetches continuation candidates from a music.Service. It satisfies
// the player.Recommender interface.
type Policy struct {
	Source music.Service
}

// New returns a Policy backed by the given service.
func New(source music.Service) *Policy {
	return &Policy{Source: source}
}

// Recommend returns an ordered, deduplicated candidate list for what to
// play after current. The caller takes the head as the next track and the
// remainder as the new queue. An empty result means playback simply stops
// advancing; it is never an error.
func (p *Policy) Recommend(ctx context.Context, current music.Track, history, queue []music.Track) ([]music.Track, error) {
	source := "related"
	candidates, err := p.Source.RelatedTracks(ctx, current.ID)
	if err != nil {
		if music.IsQuota(err) {
			// Respect the quota signal: no fallback search, it
			// would burn more of the exhausted budget.
			log.WithError(err).Warn("related lookup hit quota, stopping auto-advance")
			metrics.AutoAdvances.WithLabelValues("none").Inc()
			return nil, nil
		}
		log.WithError(err).Info("related lookup failed, falling back to search")
		candidates = nil
	}
	if len(candidates) == 0 {
		source = "search"
		query := Keywords(current.Title)
		candidates, err = p.Source.SearchTracks(ctx, query)
		if err != nil {
			log.WithError(err).WithField("query", query).Info("fallback search failed")
			metrics.AutoAdvances.WithLabelValues("none").Inc()
			return nil, nil
		}
	}

	exclude := make(map[string]struct{}, len(history)+len(queue)+1)
	exclude[current.ID] = struct{}{}
	for _, t := range history {
		exclude[t.ID] = struct{}{}
	}
	for _, t := range queue {
		exclude[t.ID] = struct{}{}
	}
	filtered := make([]music.Track, 0, len(candidates))
	for _, t := range candidates {
		if _, skip := exclude[t.ID]; skip {
			continue
		}
		filtered = append(filtered, t)
	}
	filtered = music.DedupeByID(filtered)
	if len(filtered) == 0 {
		metrics.AutoAdvances.WithLabelValues("none").Inc()
		return nil, nil
	}
	metrics.AutoAdvances.WithLabelValues(source).Inc()
	return filtered, nil
}

// Keywords reduces a track title to a short search query: punctuation is
// stripped, stop words and words of two characters or fewer are dropped,
// and the first three surviving tokens are joined. When nothing survives
// the full title is returned unchanged.
func Keywords(title string) string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(title), " ")
	var kept []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		kept = append(kept, word)
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return title
	}
	return strings.Join(kept, " ")
}
