package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsPage = `<html><body>
<div class="stream-item"><a href="/news/pltr-surges"><h3>Palantir stock surges on AIP demand (Karp interview)</h3></a></div>
<div class="stream-item"><h3>Unrelated market news</h3></div>
<div class="stream-item"><h3><a href="https://example.com/dup">Palantir stock surges on AIP demand (Karp interview)</a></h3></div>
<div class="stream-item"><h3>PLTR up 3%</h3></div>
<div class="stream-item"><h3>Gotham contract expands with Army</h3></div>
<h3>Palantir headline outside the stream list</h3>
</body></html>`

const secondPage = `<html><body>
<div class="stream-item"><h3><a href="story/foundry">Foundry wins a new NHS deal</a></h3></div>
<div class="stream-item"><h3>Gotham contract expands with Army</h3></div>
</body></html>`

func newNewsServer(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()
	var lastHeaders http.Header
	mux := http.NewServeMux()
	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			lastHeaders = r.Header.Clone()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/news", html(newsPage))
	mux.HandleFunc("/more", html(secondPage))
	mux.HandleFunc("/limited", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(newsPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastHeaders
}

func TestYahooFetchFiltersAndDedupes(t *testing.T) {
	srv, headers := newNewsServer(t)
	fixed := time.Date(2024, 5, 6, 14, 0, 0, 0, time.UTC)

	f := NewYahooFinanceFetcher([]string{srv.URL + "/news"})
	f.Now = func() time.Time { return fixed }
	f.pick = func(int) int { return 2 }

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Palantir stock surges on AIP demand (Karp interview)", got[0].Text)
	assert.Equal(t, srv.URL+"/news/pltr-surges", got[0].SourceURL, "link should come from the wrapping anchor")
	assert.Equal(t, SourceYahooFinance, got[0].Source)
	assert.Equal(t, fixed, got[0].Timestamp)

	assert.Equal(t, "Gotham contract expands with Army", got[1].Text)
	assert.Equal(t, srv.URL+"/news", got[1].SourceURL, "no anchor falls back to page url")

	assert.Equal(t, userAgents[2], headers.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.5", headers.Get("Accept-Language"))
}

func TestYahooFetchSkipsFailingURLs(t *testing.T) {
	srv, _ := newNewsServer(t)

	var pauses []time.Duration
	f := NewYahooFinanceFetcher([]string{
		srv.URL + "/limited",
		srv.URL + "/forbidden",
		srv.URL + "/broken",
		srv.URL + "/created",
		"http://127.0.0.1:1/unreachable",
		srv.URL + "/news",
		srv.URL + "/more",
	})
	f.Sleep = func(_ context.Context, d time.Duration) { pauses = append(pauses, d) }

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, pauses, "429 pauses exactly once and is not retried")

	texts := make([]string, 0, len(got))
	for _, h := range got {
		texts = append(texts, h.Text)
	}
	assert.Equal(t, []string{
		"Palantir stock surges on AIP demand (Karp interview)",
		"Gotham contract expands with Army",
		"Foundry wins a new NHS deal",
	}, texts)
	assert.Equal(t, srv.URL+"/story/foundry", got[2].SourceURL)
}

func TestYahooFetchEmptyIsNotAnError(t *testing.T) {
	srv, _ := newNewsServer(t)
	f := NewYahooFinanceFetcher([]string{srv.URL + "/forbidden"})

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestYahooFetchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewYahooFinanceFetcher([]string{"http://127.0.0.1:1/never"})
	got, err := f.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

func TestIsRelevantHeadline(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Palantir stock surges on AIP demand (Karp interview)", true},
		{"Unrelated market news", false},
		{"Why PLTR shares fell today", true},
		{"KARP sells more stock", true},
		{"pltr aip!!", false}, // 正好 10 个字符，过短
		{"pltr aip!!!", true},
		{"", false},
	}
	for _, c := range cases {
		if got := isRelevantHeadline(c.text); got != c.want {
			t.Fatalf("isRelevantHeadline(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestDedupeByTextKeepsFirstOccurrence(t *testing.T) {
	items := []Headline{
		{Text: "a", SourceURL: "1"},
		{Text: "b", SourceURL: "2"},
		{Text: "a", SourceURL: "3"},
		{Text: "c", SourceURL: "4"},
		{Text: "b", SourceURL: "5"},
	}
	out := dedupeByText(items)
	require.Len(t, out, 3)
	assert.Equal(t, "1", out[0].SourceURL)
	assert.Equal(t, "2", out[1].SourceURL)
	assert.Equal(t, "4", out[2].SourceURL)
}

func TestRandomHeadersPicksFromPool(t *testing.T) {
	for i := range userAgents {
		h := randomHeaders(func(int) int { return i })
		if h.Get("User-Agent") != userAgents[i] {
			t.Fatalf("User-Agent = %q, want %q", h.Get("User-Agent"), userAgents[i])
		}
	}
	h := randomHeaders(nil)
	assert.Contains(t, userAgents, h.Get("User-Agent"))
	assert.Equal(t, "1", h.Get("Upgrade-Insecure-Requests"))
}
