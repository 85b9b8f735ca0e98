// Package transcript fetches the caption text of a YouTube video.
package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/modules/learning/videoref"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/apierr"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

const (
	DefaultMaxChars  = 15000
	truncationSuffix = "..."
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	ErrInvalidReference      = apierr.Sentinel(apierr.KindInputValidation, http.StatusBadRequest, "invalid_video_reference", "Invalid YouTube URL or video ID")
	ErrNoTranscriptAvailable = apierr.Sentinel(apierr.KindUpstreamUnavailable, http.StatusNotFound, "no_transcript", "No transcript available for this video")
)

type Transcript struct {
	VideoID   string `json:"videoId"`
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	Truncated bool   `json:"truncated"`
}

type Fetcher struct {
	baseURL   string
	language  string
	maxChars  int
	userAgent string

	httpClient *http.Client
	policy     *bluemonday.Policy
	log        *logger.Logger
}

func NewFetcher(cfg config.TranscriptConfig, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "en"
	}
	return &Fetcher{
		baseURL:    baseURL,
		language:   lang,
		maxChars:   maxChars,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
		policy:     bluemonday.StrictPolicy(),
		log:        log.With("service", "TranscriptFetcher"),
	}
}

// NewWithHTTPClient is intended for tests.
func NewWithHTTPClient(cfg config.TranscriptConfig, log *logger.Logger, httpClient *http.Client) *Fetcher {
	f := NewFetcher(cfg, log)
	if httpClient != nil {
		f.httpClient = httpClient
	}
	return f
}

// Fetch resolves ref to a video ID and returns its caption text, truncated to the configured limit.
// Every upstream failure is reported as ErrNoTranscriptAvailable and never retried.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (out Transcript, err error) {
	id, ok := videoref.ExtractID(ref)
	if !ok {
		return Transcript{}, ErrInvalidReference
	}

	ctx, span := observability.StartSpan(ctx, "transcript.fetch", attribute.String("video.id", id))
	defer func() { observability.EndSpan(span, err) }()

	tracks, err := f.captionTracks(ctx, id)
	if err != nil {
		f.log.Warn("caption track lookup failed", "video_id", id, "error", err)
		return Transcript{}, fmt.Errorf("%w: %v", ErrNoTranscriptAvailable, err)
	}
	track, ok := pickTrack(tracks, f.language)
	if !ok {
		return Transcript{}, fmt.Errorf("%w: video has no caption tracks", ErrNoTranscriptAvailable)
	}

	fragments, err := f.timedText(ctx, track.BaseURL)
	if err != nil {
		f.log.Warn("timed text fetch failed", "video_id", id, "language", track.LanguageCode, "error", err)
		return Transcript{}, fmt.Errorf("%w: %v", ErrNoTranscriptAvailable, err)
	}

	text := f.join(fragments)
	if strings.TrimSpace(text) == "" {
		return Transcript{}, fmt.Errorf("%w: caption track is empty", ErrNoTranscriptAvailable)
	}

	truncated := Truncate(text, f.maxChars)
	out = Transcript{
		VideoID:   id,
		Text:      truncated,
		Language:  track.LanguageCode,
		Truncated: truncated != text,
	}
	f.log.Debug("transcript fetched", "video_id", id, "language", track.LanguageCode, "chars", utf8.RuneCountInString(text), "truncated", out.Truncated)
	return out, nil
}

// Truncate cuts text to max characters and appends "..."; text at or under the limit is returned as is.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i] + truncationSuffix
		}
		n++
	}
	return text
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind,omitempty"`
}

// captionTracks reads the caption track list embedded in the watch page's player response.
func (f *Fetcher) captionTracks(ctx context.Context, id string) ([]captionTrack, error) {
	pageURL := f.baseURL + "/watch?v=" + url.QueryEscape(id)
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	const marker = `"captionTracks":`
	var (
		tracks   []captionTrack
		parseErr error
	)
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.Text()
		idx := strings.Index(src, marker)
		if idx < 0 {
			return true
		}
		dec := json.NewDecoder(strings.NewReader(src[idx+len(marker):]))
		if err := dec.Decode(&tracks); err != nil {
			parseErr = fmt.Errorf("decode caption tracks: %w", err)
			return true
		}
		return false
	})
	if len(tracks) == 0 && parseErr != nil {
		return nil, parseErr
	}
	for i := range tracks {
		tracks[i].BaseURL = f.resolve(tracks[i].BaseURL)
	}
	return tracks, nil
}

// pickTrack prefers a manual track in lang, then any track in lang (including regional variants), then
// the first track.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}
	lang = strings.ToLower(lang)
	var fallback *captionTrack
	for i := range tracks {
		code := strings.ToLower(tracks[i].LanguageCode)
		if code != lang && !strings.HasPrefix(code, lang+"-") {
			continue
		}
		if tracks[i].Kind != "asr" {
			return tracks[i], true
		}
		if fallback == nil {
			fallback = &tracks[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return tracks[0], true
}

type timedTextDoc struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",innerxml"`
	} `xml:"text"`
}

type fragment struct {
	start float64
	text  string
}

func (f *Fetcher) timedText(ctx context.Context, trackURL string) ([]fragment, error) {
	if trackURL == "" {
		return nil, fmt.Errorf("caption track has no url")
	}
	body, err := f.get(ctx, trackURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var doc timedTextDoc
	if err := xml.NewDecoder(io.LimitReader(body, 8<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode timed text: %w", err)
	}
	out := make([]fragment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		start, _ := strconv.ParseFloat(t.Start, 64)
		out = append(out, fragment{start: start, text: t.Body})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out, nil
}

// join cleans each fragment and joins them with single spaces. Caption bodies are entity-escaped,
// sometimes twice, and may carry inline markup.
func (f *Fetcher) join(fragments []fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, fr := range fragments {
		s := html.UnescapeString(fr.text)
		s = f.policy.Sanitize(s)
		s = html.UnescapeString(html.UnescapeString(s))
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", f.language)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", req.URL.Path, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	base, err := url.Parse(f.baseURL + "/")
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
