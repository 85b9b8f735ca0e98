package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
)

const watchPageTmpl = `<!doctype html><html><head><title>video</title></head><body>
<script>var ytInitialData = {"contents":{}};</script>
<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":%s,"audioTracks":[]}}};</script>
</body></html>`

func newServer(t *testing.T, tracks string, timedText map[string]string) (*httptest.Server, *int) {
	t.Helper()
	watchHits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		watchHits++
		if r.URL.Query().Get("v") == "" {
			http.Error(w, "missing v", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, watchPageTmpl, tracks)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		body, ok := timedText[r.URL.Query().Get("lang")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &watchHits
}

func newFetcher(srv *httptest.Server, maxChars int) *Fetcher {
	return NewWithHTTPClient(config.TranscriptConfig{
		BaseURL:  srv.URL,
		Language: "en",
		MaxChars: maxChars,
	}, nil, srv.Client())
}

func TestFetchJoinsFragmentsInOrder(t *testing.T) {
	tracks := `[{"baseUrl":"/api/timedtext?v=dQw4w9WgXcQ&lang=de","languageCode":"de"},` +
		`{"baseUrl":"/api/timedtext?v=dQw4w9WgXcQ&lang=en","languageCode":"en","kind":"asr"}]`
	xmlBody := `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="4.2" dur="1.0">second   line</text>` +
		`<text start="0.5" dur="2.1">first &amp;amp; foremost</text>` +
		`<text start="9.0" dur="1.0">&lt;font color=&quot;#fff&quot;&gt;it&amp;#39;s done&lt;/font&gt;</text>` +
		`<text start="12.0" dur="1.0">   </text>` +
		`</transcript>`
	srv, _ := newServer(t, tracks, map[string]string{"en": xmlBody})

	got, err := newFetcher(srv, 0).Fetch(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.VideoID != "dQw4w9WgXcQ" || got.Language != "en" || got.Truncated {
		t.Fatalf("unexpected transcript meta: %+v", got)
	}
	want := "first & foremost second line it's done"
	if got.Text != want {
		t.Fatalf("text=%q want %q", got.Text, want)
	}
}

func TestFetchTruncatesLongTranscripts(t *testing.T) {
	tracks := `[{"baseUrl":"/api/timedtext?lang=en","languageCode":"en"}]`
	var b strings.Builder
	b.WriteString(`<transcript>`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `<text start="%d">%s</text>`, i, strings.Repeat("x", 999))
	}
	b.WriteString(`</transcript>`)
	srv, _ := newServer(t, tracks, map[string]string{"en": b.String()})

	got, err := newFetcher(srv, 15000).Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !got.Truncated {
		t.Fatalf("expected truncation")
	}
	if n := utf8.RuneCountInString(got.Text); n != 15003 || !strings.HasSuffix(got.Text, "...") {
		t.Fatalf("len=%d suffix=%q", n, got.Text[len(got.Text)-5:])
	}
}

func TestFetchNoTranscript(t *testing.T) {
	cases := []struct {
		name   string
		tracks string
		texts  map[string]string
	}{
		{name: "no tracks", tracks: `[]`},
		{name: "track 404", tracks: `[{"baseUrl":"/api/timedtext?lang=fr","languageCode":"fr"}]`},
		{name: "empty track", tracks: `[{"baseUrl":"/api/timedtext?lang=en","languageCode":"en"}]`, texts: map[string]string{"en": `<transcript></transcript>`}},
		{name: "bad xml", tracks: `[{"baseUrl":"/api/timedtext?lang=en","languageCode":"en"}]`, texts: map[string]string{"en": `<transcript><text>`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newServer(t, tc.tracks, tc.texts)
			_, err := newFetcher(srv, 0).Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
			if !errors.Is(err, ErrNoTranscriptAvailable) {
				t.Fatalf("err=%v want ErrNoTranscriptAvailable", err)
			}
			if ae := apierr.From(err); ae.Status != http.StatusNotFound {
				t.Fatalf("status=%d", ae.Status)
			}
		})
	}
}

func TestFetchInvalidReferenceSkipsNetwork(t *testing.T) {
	srv, hits := newServer(t, `[]`, nil)
	_, err := newFetcher(srv, 0).Fetch(context.Background(), "not a video")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("err=%v", err)
	}
	if *hits != 0 {
		t.Fatalf("watch page fetched %d times", *hits)
	}
}

func TestPickTrack(t *testing.T) {
	tracks := []captionTrack{
		{LanguageCode: "de"},
		{LanguageCode: "en-GB", Kind: "asr"},
		{LanguageCode: "en-US"},
	}
	if got, _ := pickTrack(tracks, "en"); got.LanguageCode != "en-US" {
		t.Fatalf("manual track not preferred: %+v", got)
	}
	if got, _ := pickTrack(tracks[:2], "en"); got.LanguageCode != "en-GB" {
		t.Fatalf("asr fallback: %+v", got)
	}
	if got, _ := pickTrack(tracks[:1], "en"); got.LanguageCode != "de" {
		t.Fatalf("first-track fallback: %+v", got)
	}
	if _, ok := pickTrack(nil, "en"); ok {
		t.Fatalf("empty list should report false")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"abcdef", 3, "abc..."},
		{"héllo wörld", 5, "héllo..."},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("Truncate(%q,%d)=%q want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
