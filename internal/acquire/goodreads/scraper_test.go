package goodreads

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uxentio/books-pipeline/internal/acquire"
)

const searchPage = `<html><body><table>
<tr itemtype="http://schema.org/Book">
  <td><a class="bookTitle" href="/book/show/3735293-clean-code"><span>Clean Code: A Handbook of Agile Software Craftsmanship</span></a>
  <a class="authorName" href="/author/show/45372"><span>Robert C. Martin</span></a>
  <span class="minirating"> 4.37 avg rating — 24,431 ratings</span></td>
</tr>
<tr itemtype="http://schema.org/Book">
  <td><a class="bookTitle" href="/book/show/404-gone">Gone</a></td>
</tr>
<tr itemtype="http://schema.org/Book">
  <td><a class="bookTitle" href="/book/show/4099.The_Pragmatic_Programmer">The Pragmatic Programmer</a>
  <a class="authorName" href="/author/show/2815">Andrew Hunt</a>
  <span class="minirating">4.33 avg rating — 9,802 ratings</span></td>
</tr>
<tr itemtype="http://schema.org/Book">
  <td><a class="bookTitle" href="/book/show/44936.Refactoring">Refactoring</a></td>
</tr>
</table></body></html>`

const cleanCodePage = `<html><head>
<meta property="books:isbn" content="9780132350884">
</head><body>
<h1 class="Text__title1" data-testid="bookTitle">Clean Code: A Handbook of Agile Software Craftsmanship</h1>
<span class="ContributorLink__name" data-testid="name">Robert C. Martin</span>
<div class="RatingStatistics__rating">4.37</div>
<span data-testid="ratingsCount">24,431&nbsp;ratings</span>
</body></html>`

// legacy markup, no meta isbn, identifier only in the details text
const pragmaticPage = `<html><body>
<h1 id="bookTitle" data-testid="bookTitle">The Pragmatic Programmer</h1>
<a class="authorName"><span>Andrew Hunt</span></a>
<div id="details">Published 1999 by Addison-Wesley. ISBN 020161622X (ISBN13: 9780201616224)</div>
</body></html>`

func newGoodreads(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "software craft", r.URL.Query().Get("q"))
		fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/book/show/3735293-clean-code", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cleanCodePage)
	})
	mux.HandleFunc("/book/show/4099.The_Pragmatic_Programmer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pragmaticPage)
	})
	mux.HandleFunc("/book/show/404-gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	srv := newGoodreads(t)
	fetcher := acquire.NewFetcher(acquire.FetcherOptions{UserAgent: "test-agent"})
	s := NewScraper(fetcher, srv.URL+"/", "test-agent")

	doc, err := s.Search(context.Background(), "software craft", 3)
	require.NoError(t, err)

	// three hits were taken, the missing page was skipped
	require.Len(t, doc.Books, 2)
	assert.Equal(t, 2, doc.Metadata.TotalBooksScraped)
	assert.Equal(t, "software craft", doc.Metadata.SearchTerm)
	assert.Equal(t, srv.URL+"/search?q=software+craft", doc.Metadata.SearchURLs[0])

	cc := doc.Books[0]
	assert.Equal(t, "Clean Code: A Handbook of Agile Software Craftsmanship", cc.Title)
	assert.Equal(t, "Robert C. Martin", cc.Author)
	assert.Equal(t, "9780132350884", cc.ISBN13)
	assert.Equal(t, srv.URL+"/book/show/3735293-clean-code", cc.BookURL)
	require.NotNil(t, cc.Rating)
	assert.Equal(t, 4.37, *cc.Rating)
	require.NotNil(t, cc.RatingsCount)
	assert.Equal(t, int64(24431), *cc.RatingsCount)

	pp := doc.Books[1]
	assert.Equal(t, "The Pragmatic Programmer", pp.Title)
	assert.Equal(t, "Andrew Hunt", pp.Author)
	assert.Equal(t, "9780201616224", pp.ISBN13)
	// no rating on the page, taken from the search row
	require.NotNil(t, pp.Rating)
	assert.Equal(t, 4.33, *pp.Rating)
	assert.Equal(t, int64(9802), *pp.RatingsCount)
}

func TestSearchFailsOnSearchPageError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := NewScraper(acquire.NewFetcher(acquire.FetcherOptions{}), srv.URL, "ua")
	_, err := s.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}

func TestParseMinirating(t *testing.T) {
	tests := []struct {
		text       string
		wantRating float64
		wantCount  int64
		wantNil    bool
	}{
		{text: "4.37 avg rating — 24,431 ratings", wantRating: 4.37, wantCount: 24431},
		{text: "really liked it 3.9 avg rating - 1 rating", wantRating: 3.9, wantCount: 1},
		{text: "no ratings yet", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rating, count := parseMinirating(tt.text)
			if tt.wantNil {
				assert.Nil(t, rating)
				assert.Nil(t, count)
				return
			}
			require.NotNil(t, rating)
			require.NotNil(t, count)
			assert.Equal(t, tt.wantRating, *rating)
			assert.Equal(t, tt.wantCount, *count)
		})
	}
}
