package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeChannel is a channel served by FakeYouTube.
type FakeChannel struct {
	Title       string
	Description string
	Subscribers string
	PublishedAt string
	// Uploads is the uploads playlist id; empty means the channel has none.
	Uploads string
}

// FakePage is one page of the most-popular chart.
type FakePage struct {
	ChannelIDs []string
	Next       string
}

// FakeYouTube serves the subset of the Data API the pipeline reads.
type FakeYouTube struct {
	Server *httptest.Server

	Categories map[string]string // id -> title
	// Pages is keyed by page token; the first page has the empty token.
	Pages    map[string]FakePage
	Channels map[string]FakeChannel
	// Playlists maps playlist id -> latest video id.
	Playlists map[string]string
	// Videos maps video id -> description.
	Videos map[string]string
	// FailPaths makes the named endpoints answer 500.
	FailPaths map[string]bool

	mu       sync.Mutex
	requests map[string]int
}

// NewFakeYouTube starts the fake server; it is closed when the test ends.
func NewFakeYouTube(t *testing.T) *FakeYouTube {
	t.Helper()
	f := &FakeYouTube{
		Categories: map[string]string{},
		Pages:      map[string]FakePage{},
		Channels:   map[string]FakeChannel{},
		Playlists:  map[string]string{},
		Videos:     map[string]string{},
		FailPaths:  map[string]bool{},
		requests:   map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure the client with.
func (f *FakeYouTube) URL() string {
	return f.Server.URL + "/"
}

// Requests returns how many times an endpoint was called.
func (f *FakeYouTube) Requests(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[endpoint]
}

func (f *FakeYouTube) serve(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	f.mu.Lock()
	f.requests[endpoint]++
	f.mu.Unlock()

	if r.URL.Query().Get("key") == "" {
		http.Error(w, `{"error":"missing key"}`, http.StatusForbidden)
		return
	}
	if f.FailPaths[endpoint] {
		http.Error(w, `{"error":"backend error"}`, http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	var body any
	switch endpoint {
	case "videoCategories":
		items := []map[string]any{}
		for id, title := range f.Categories {
			items = append(items, map[string]any{"id": id, "snippet": map[string]any{"title": title}})
		}
		body = map[string]any{"items": items}
	case "videos":
		if id := q.Get("id"); id != "" {
			items := []map[string]any{}
			if desc, ok := f.Videos[id]; ok {
				items = append(items, map[string]any{"id": id, "snippet": map[string]any{"description": desc}})
			}
			body = map[string]any{"items": items}
			break
		}
		page := f.Pages[q.Get("pageToken")]
		items := []map[string]any{}
		for i, ch := range page.ChannelIDs {
			items = append(items, map[string]any{
				"id":      ch + "-video-" + string(rune('a'+i)),
				"snippet": map[string]any{"channelId": ch},
			})
		}
		resp := map[string]any{"items": items}
		if page.Next != "" {
			resp["nextPageToken"] = page.Next
		}
		body = resp
	case "channels":
		id := q.Get("id")
		items := []map[string]any{}
		if ch, ok := f.Channels[id]; ok {
			items = append(items, map[string]any{
				"id": id,
				"snippet": map[string]any{
					"title":       ch.Title,
					"description": ch.Description,
					"publishedAt": ch.PublishedAt,
				},
				"statistics": map[string]any{"subscriberCount": ch.Subscribers},
				"contentDetails": map[string]any{
					"relatedPlaylists": map[string]any{"uploads": ch.Uploads},
				},
			})
		}
		body = map[string]any{"items": items}
	case "playlistItems":
		items := []map[string]any{}
		if videoID, ok := f.Playlists[q.Get("playlistId")]; ok {
			items = append(items, map[string]any{
				"snippet": map[string]any{"resourceId": map[string]any{"videoId": videoID}},
			})
		}
		body = map[string]any{"items": items}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
