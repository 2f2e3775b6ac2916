// Package googlebooks looks up scraped books in the Google Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/uxentio/books-pipeline/internal/acquire"
	"github.com/uxentio/books-pipeline/internal/landing"
	books "google.golang.org/api/books/v1"
	"google.golang.org/api/option"
)

// ErrNotFound is returned when no query strategy yields a volume.
var ErrNotFound = errors.New("no matching volume")

// Options configure a Client.
type Options struct {
	APIKey string
	// Endpoint overrides the API base URL, e.g. for a proxy or a test server.
	Endpoint string
	// HTTPClient is used as-is; when set, APIKey is ignored by the transport
	// and must be carried by the client itself.
	HTTPClient *http.Client
}

// Client queries the volumes API, pacing and caching through a shared fetcher.
type Client struct {
	service *books.Service
	fetcher *acquire.Fetcher
}

// NewClient builds the API service.
func NewClient(ctx context.Context, fetcher *acquire.Fetcher, opts Options) (*Client, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	default:
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := books.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create books service: %w", err)
	}
	return &Client{service: service, fetcher: fetcher}, nil
}

// Queries returns the search strategies for a book, most specific first:
// ISBN-13, ISBN-10, title with author, title alone.
func Queries(b landing.GoodreadsBook) []string {
	var queries []string
	if v := strings.TrimSpace(b.ISBN13); v != "" {
		queries = append(queries, "isbn:"+v)
	}
	if v := strings.TrimSpace(b.ISBN10); v != "" {
		queries = append(queries, "isbn:"+v)
	}
	title := strings.TrimSpace(b.Title)
	author := strings.TrimSpace(b.Author)
	if title != "" && author != "" {
		queries = append(queries, fmt.Sprintf("intitle:%s inauthor:%s", title, author))
	}
	if title != "" {
		queries = append(queries, "intitle:"+title)
	}
	return queries
}

// Lookup tries each query strategy in turn and returns the first volume found.
func (c *Client) Lookup(ctx context.Context, b landing.GoodreadsBook) (*landing.GoogleBooksRow, error) {
	for _, q := range Queries(b) {
		vol, err := c.search(ctx, q)
		if err != nil {
			return nil, err
		}
		if vol != nil {
			slog.Debug("Volume found", "query", q, "id", vol.Id)
			return RowFromVolume(vol), nil
		}
	}
	return nil, ErrNotFound
}

// Enrich looks up every book. Books without a match, or whose lookup fails,
// are logged and left out.
func (c *Client) Enrich(ctx context.Context, scraped []landing.GoodreadsBook) ([]landing.GoogleBooksRow, error) {
	rows := make([]landing.GoogleBooksRow, 0, len(scraped))
	for i, b := range scraped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Info("Looking up book", "n", i+1, "of", len(scraped), "title", b.Title)

		row, err := c.Lookup(ctx, b)
		switch {
		case errors.Is(err, ErrNotFound):
			slog.Warn("No Google Books volume", "title", b.Title)
			continue
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case err != nil:
			slog.Warn("Lookup failed", "title", b.Title, "error", err)
			continue
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (c *Client) search(ctx context.Context, q string) (*books.Volume, error) {
	key := "volumes:" + q
	if cached, ok := c.fetcher.Recall(key); ok {
		var res books.Volumes
		if err := json.Unmarshal(cached, &res); err == nil {
			return firstVolume(&res), nil
		}
	}

	if err := c.fetcher.Limiter().Wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.service.Volumes.List(q).MaxResults(1).PrintType("books").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query volumes for %q: %w", q, err)
	}

	if data, err := json.Marshal(res); err == nil {
		c.fetcher.Remember(key, data)
	}
	return firstVolume(res), nil
}

func firstVolume(res *books.Volumes) *books.Volume {
	if res == nil || res.TotalItems == 0 || len(res.Items) == 0 {
		return nil
	}
	return res.Items[0]
}

// RowFromVolume flattens a volume into the landing CSV shape. A price is only
// recorded for volumes that are for sale.
func RowFromVolume(v *books.Volume) *landing.GoogleBooksRow {
	row := &landing.GoogleBooksRow{ID: v.Id}

	if info := v.VolumeInfo; info != nil {
		row.Title = info.Title
		row.Subtitle = info.Subtitle
		row.Authors = strings.Join(info.Authors, ", ")
		row.Publisher = info.Publisher
		row.PubDate = info.PublishedDate
		row.Language = info.Language
		row.Categories = strings.Join(info.Categories, ", ")
		for _, id := range info.IndustryIdentifiers {
			if id == nil {
				continue
			}
			switch id.Type {
			case "ISBN_13":
				row.ISBN13 = id.Identifier
			case "ISBN_10":
				row.ISBN10 = id.Identifier
			}
		}
	}

	if sale := v.SaleInfo; sale != nil && sale.Saleability == "FOR_SALE" && sale.RetailPrice != nil {
		row.PriceAmount = strconv.FormatFloat(sale.RetailPrice.Amount, 'f', -1, 64)
		row.PriceCurrency = sale.RetailPrice.CurrencyCode
	}
	return row
}
