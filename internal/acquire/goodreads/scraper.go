// Package goodreads scrapes book metadata from Goodreads search results and
// book pages.
package goodreads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/uxentio/books-pipeline/internal/acquire"
	"github.com/uxentio/books-pipeline/internal/isbn"
	"github.com/uxentio/books-pipeline/internal/landing"
)

// Selectors used on search and book pages. Book pages changed markup over
// time, so title and author carry a legacy alternative.
var Selectors = map[string]string{
	"search_result": "a.bookTitle",
	"search_author": "a.authorName",
	"search_rating": "span.minirating",
	"title":         "h1.Text__title1, h1[data-testid=bookTitle]",
	"author":        "span.ContributorLink__name, a.authorName",
	"rating":        "div.RatingStatistics__rating",
	"ratings_count": "span[data-testid=ratingsCount]",
	"isbn":          `meta[property="books:isbn"]`,
}

var (
	countPattern      = regexp.MustCompile(`[\d,]+`)
	miniratingPattern = regexp.MustCompile(`([\d.]+)\s+avg rating\D+([\d,]+)\s+rating`)
)

// Scraper collects books for a search query.
type Scraper struct {
	fetcher   *acquire.Fetcher
	baseURL   string
	userAgent string
}

// NewScraper creates a scraper against baseURL, e.g. https://www.goodreads.com.
func NewScraper(fetcher *acquire.Fetcher, baseURL, userAgent string) *Scraper {
	return &Scraper{
		fetcher:   fetcher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// searchHit is what the result list already tells us about a book.
type searchHit struct {
	url          string
	title        string
	author       string
	rating       *float64
	ratingsCount *int64
}

// Search runs the query and scrapes up to maxBooks book pages. Book pages that
// fail to load are skipped; a failing search page fails the whole scrape.
func (s *Scraper) Search(ctx context.Context, query string, maxBooks int) (*landing.GoodreadsDocument, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s", s.baseURL, url.QueryEscape(query))
	doc := &landing.GoodreadsDocument{
		Metadata: landing.GoodreadsMetadata{
			Scraper:       "books-pipeline/goodreads",
			SearchTerm:    query,
			SearchURLs:    []string{searchURL},
			UserAgent:     s.userAgent,
			ScrapeDate:    time.Now().UTC(),
			SelectorsUsed: Selectors,
		},
		Books: []landing.GoodreadsBook{},
	}

	slog.Info("Searching Goodreads", "query", query, "url", searchURL)
	body, err := s.fetcher.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}

	hits, err := s.parseSearch(body, maxBooks)
	if err != nil {
		return nil, err
	}
	slog.Info("Found books to scrape", "count", len(hits))

	for i, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Info("Scraping book page", "n", i+1, "of", len(hits), "url", hit.url)

		book, err := s.scrapeBook(ctx, hit)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			slog.Warn("Skipping book page", "url", hit.url, "error", err)
			continue
		}
		doc.Books = append(doc.Books, *book)
	}

	doc.Metadata.TotalBooksScraped = len(doc.Books)
	return doc, nil
}

func (s *Scraper) parseSearch(body []byte, maxBooks int) ([]searchHit, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var hits []searchHit
	seen := map[string]bool{}
	page.Find(Selectors["search_result"]).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if maxBooks > 0 && len(hits) >= maxBooks {
			return false
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}
		abs, err := s.resolve(href)
		if err != nil || seen[abs] {
			return true
		}
		seen[abs] = true

		hit := searchHit{url: abs, title: cleanText(link.Text())}
		// result rows are table rows; author and minirating sit beside the link
		row := link.Closest("tr")
		if row.Length() > 0 {
			hit.author = cleanText(row.Find(Selectors["search_author"]).First().Text())
			hit.rating, hit.ratingsCount = parseMinirating(row.Find(Selectors["search_rating"]).First().Text())
		}
		hits = append(hits, hit)
		return true
	})
	return hits, nil
}

func (s *Scraper) scrapeBook(ctx context.Context, hit searchHit) (*landing.GoodreadsBook, error) {
	body, err := s.fetcher.Get(ctx, hit.url)
	if err != nil {
		return nil, err
	}
	book, err := ParseBookPage(body)
	if err != nil {
		return nil, err
	}

	book.BookURL = hit.url
	if book.Title == "" {
		book.Title = hit.title
	}
	if book.Author == "" {
		book.Author = hit.author
	}
	if book.Rating == nil {
		book.Rating = hit.rating
	}
	if book.RatingsCount == nil {
		book.RatingsCount = hit.ratingsCount
	}
	return book, nil
}

// ParseBookPage extracts one book from a Goodreads book page.
func ParseBookPage(body []byte) (*landing.GoodreadsBook, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse book page: %w", err)
	}

	book := &landing.GoodreadsBook{
		Title:  cleanText(page.Find(Selectors["title"]).First().Text()),
		Author: cleanText(page.Find(Selectors["author"]).First().Text()),
	}

	if text := cleanText(page.Find(Selectors["rating"]).First().Text()); text != "" {
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			book.Rating = &v
		}
	}
	if text := page.Find(Selectors["ratings_count"]).First().Text(); text != "" {
		book.RatingsCount = parseCount(text)
	}

	if content, ok := page.Find(Selectors["isbn"]).First().Attr("content"); ok {
		switch cleaned := isbn.Clean(content); len(cleaned) {
		case 13:
			book.ISBN13 = cleaned
		case 10:
			book.ISBN10 = cleaned
		}
	}
	if book.ISBN13 == "" && book.ISBN10 == "" {
		book.ISBN13, book.ISBN10 = isbn.Extract(page.Find("body").Text())
	}

	return book, nil
}

func (s *Scraper) resolve(href string) (string, error) {
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String(), nil
}

func parseMinirating(text string) (*float64, *int64) {
	m := miniratingPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	var rating *float64
	if v, err := strconv.ParseFloat(m[1], 64); err == nil {
		rating = &v
	}
	return rating, parseCount(m[2])
}

func parseCount(text string) *int64 {
	digits := strings.ReplaceAll(countPattern.FindString(text), ",", "")
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
