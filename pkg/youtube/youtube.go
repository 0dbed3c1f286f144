// Package youtube implements the music.Service interface using the
// YouTube Data API. Only the endpoints required by the application are
// supported: ranked search, related-video search and the batched video
// details lookup used to resolve durations. An API key must be provided
// when constructing the client.
//
// Network calls are performed using the provided http.Client allowing
// callers to substitute a test client. All three operations are fronted by
// the response cache so repeated queries never reach the network.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/cache"
	"hungify/pkg/metrics"
	"hungify/pkg/music"
)

const apiBase = "https://www.googleapis.com/youtube/v3"

// musicCategoryID restricts searches to YouTube's Music category.
const musicCategoryID = "10"

// Duration bounds in seconds. Search and related results accept anything up
// to fifteen minutes with a resolved duration; artist lookups additionally
// exclude clips shorter than two minutes.
const (
	maxDuration       = 15 * 60
	minArtistDuration = 120
)

// Client provides access to the YouTube Data API.
type Client struct {
	Key    string
	Client *http.Client
	Cache  *cache.Store

	// baseURL is overridable in tests.
	baseURL string
}

// ensure Client implements the music.Service interface.
var _ music.Service = (*Client)(nil)

// SearchTracks queries the search API for the given text and converts the
// results into duration-filtered music.Track values. The query is biased
// with an "audio" term so plain uploads rank above video clips.
func (c *Client) SearchTracks(ctx context.Context, query string) ([]music.Track, error) {
	key := cache.QueryKey(query)
	if tracks, ok := c.cached(key); ok {
		return tracks, nil
	}
	params := url.Values{
		"part":            {"snippet"},
		"type":            {"video"},
		"videoCategoryId": {musicCategoryID},
		"maxResults":      {"10"},
		"q":               {query + " audio"},
	}
	tracks, err := c.fetch(ctx, "search", params, 1, maxDuration, "")
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, tracks)
	return tracks, nil
}

// RelatedTracks returns tracks related to the given seed video id. The seed
// itself is excluded from the results.
func (c *Client) RelatedTracks(ctx context.Context, seedID string) ([]music.Track, error) {
	key := cache.RelatedKey(seedID)
	if tracks, ok := c.cached(key); ok {
		return tracks, nil
	}
	params := url.Values{
		"part":             {"snippet"},
		"type":             {"video"},
		"videoCategoryId":  {musicCategoryID},
		"maxResults":       {"10"},
		"relatedToVideoId": {seedID},
	}
	tracks, err := c.fetch(ctx, "related", params, 1, maxDuration, seedID)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, tracks)
	return tracks, nil
}

// ArtistTracks returns the artist's popular uploads ordered by view count.
// The query is biased toward official content and short clips are filtered
// out so covers and teasers don't pollute artist pages.
func (c *Client) ArtistTracks(ctx context.Context, artist string) ([]music.Track, error) {
	key := cache.ArtistKey(artist)
	if tracks, ok := c.cached(key); ok {
		return tracks, nil
	}
	params := url.Values{
		"part":            {"snippet"},
		"type":            {"video"},
		"videoCategoryId": {musicCategoryID},
		"maxResults":      {"10"},
		"order":           {"viewCount"},
		"q":               {artist + " official"},
	}
	tracks, err := c.fetch(ctx, "artist", params, minArtistDuration, maxDuration, "")
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, tracks)
	return tracks, nil
}

// cached reads the response cache when one is configured.
func (c *Client) cached(key string) ([]music.Track, bool) {
	if c.Cache == nil {
		return nil, false
	}
	return c.Cache.Get(key)
}

// fetch runs the shared search pipeline: issue the ranked search, resolve
// exact durations in one batched follow-up call, then filter by the given
// duration band and optional excluded id.
func (c *Client) fetch(ctx context.Context, op string, params url.Values, minDur, maxDur int, excludeID string) ([]music.Track, error) {
	if c.Key == "" {
		return nil, music.ErrNoCredentials
	}
	body, err := c.get(ctx, "/search", params)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(op, outcome(err)).Inc()
		return nil, err
	}
	var sr struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					High    struct{ URL string `json:"url"` } `json:"high"`
					Default struct{ URL string `json:"url"` } `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &sr); err != nil {
		metrics.GatewayRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("youtube search decode: %w", err)
	}
	if len(sr.Items) == 0 {
		metrics.GatewayRequests.WithLabelValues(op, "ok").Inc()
		return nil, nil
	}

	ids := make([]string, 0, len(sr.Items))
	tracks := make([]music.Track, 0, len(sr.Items))
	for _, item := range sr.Items {
		thumb := item.Snippet.Thumbnails.High.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		ids = append(ids, item.ID.VideoID)
		tracks = append(tracks, music.Track{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			Artist:       item.Snippet.ChannelTitle,
			ThumbnailURL: thumb,
		})
	}

	durations, err := c.videoDurations(ctx, ids)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(op, outcome(err)).Inc()
		return nil, err
	}

	filtered := tracks[:0]
	for _, t := range tracks {
		t.Duration = durations[t.ID]
		if t.Duration < minDur || t.Duration > maxDur {
			continue
		}
		if excludeID != "" && t.ID == excludeID {
			continue
		}
		filtered = append(filtered, t)
	}
	metrics.GatewayRequests.WithLabelValues(op, "ok").Inc()
	return filtered, nil
}

// videoDurations resolves exact durations for all ids in a single batched
// videos.list call. IDs missing from the response map to zero.
func (c *Client) videoDurations(ctx context.Context, ids []string) (map[string]int, error) {
	params := url.Values{
		"part": {"contentDetails"},
		"id":   {strings.Join(ids, ",")},
	}
	body, err := c.get(ctx, "/videos", params)
	if err != nil {
		return nil, err
	}
	var vr struct {
		Items []struct {
			ID             string `json:"id"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("youtube videos decode: %w", err)
	}
	durations := make(map[string]int, len(vr.Items))
	for _, item := range vr.Items {
		durations[item.ID] = parseDuration(item.ContentDetails.Duration)
	}
	return durations, nil
}

// get issues a GET against the API and returns the response body. Non-200
// responses are classified: quota rejections become music.QuotaError so
// callers can stop issuing requests for the session, anything else is
// wrapped with the upstream error message.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	base := c.baseURL
	if base == "" {
		base = apiBase
	}
	params.Set("key", c.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube response: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	reason, message := apiError(body)
	log.WithFields(log.Fields{"status": resp.StatusCode, "reason": reason}).Debug("youtube api error")
	if resp.StatusCode == http.StatusForbidden && isQuotaReason(reason, message) {
		return nil, &music.QuotaError{Message: message}
	}
	if message == "" {
		message = resp.Status
	}
	return nil, fmt.Errorf("youtube api error: %s", message)
}

// apiError extracts the reason and message from a Data API error payload.
func apiError(body []byte) (reason, message string) {
	var er struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &er); err != nil {
		return "", ""
	}
	if len(er.Error.Errors) > 0 {
		reason = er.Error.Errors[0].Reason
	}
	return reason, er.Error.Message
}

// isQuotaReason reports whether an API error denotes quota exhaustion.
func isQuotaReason(reason, message string) bool {
	switch reason {
	case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
		return true
	}
	return strings.Contains(strings.ToLower(message), "quota")
}

// outcome maps an error to a metrics label.
func outcome(err error) string {
	if music.IsQuota(err) {
		return "quota"
	}
	return "error"
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseDuration converts an ISO-8601 duration such as PT1H2M10S into
// seconds. Unparseable values yield zero, which the duration filter treats
// as unresolved and drops.
func parseDuration(d string) int {
	m := durationPattern.FindStringSubmatch(d)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + s
}
