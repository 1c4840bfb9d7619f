package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/httpclient"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	fetcher *httpclient.Fetcher
	parser  *gofeed.Parser
	baseURL string
	delay   time.Duration
	logger  *slog.Logger
}

var _ ports.SourceClient = (*ArxivClient)(nil)

// NewArxivClient wires the shared fetcher against the arXiv query API.
func NewArxivClient(fetcher *httpclient.Fetcher, baseURL string, delay time.Duration, logger *slog.Logger) *ArxivClient {
	return &ArxivClient{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		baseURL: baseURL,
		delay:   delay,
		logger:  logger,
	}
}

// Name identifies the client inside the registry.
func (c *ArxivClient) Name() string { return string(domain.SourceArxiv) }

// Search fetches recent submissions matching any of the keywords. Items
// whose submitted and updated dates both precede since are dropped.
func (c *ArxivClient) Search(ctx context.Context, keywords []string, since time.Time, limit int) ([]domain.RawPaper, error) {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = strconv.Quote(kw)
	}

	params := url.Values{}
	params.Set("search_query", "all:"+strings.Join(quoted, " OR "))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	headers := map[string]string{
		"User-Agent": browserUserAgent,
		"Accept":     "application/atom+xml",
	}

	body, err := c.fetcher.Get(ctx, c.baseURL+"?"+params.Encode(), headers)
	if err != nil {
		return nil, fmt.Errorf("arxiv search: %w: %w", ports.ErrSourceUnavailable, err)
	}
	defer pause(ctx, c.delay)

	feed, err := c.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("arxiv search: parse feed: %w", err)
	}

	papers := make([]domain.RawPaper, 0, len(feed.Items))
	for _, item := range feed.Items {
		paper, ok := c.parseEntry(item, since)
		if !ok {
			continue
		}
		papers = append(papers, paper)
		c.logger.Debug("found arxiv paper", "id", paper.NativeID, "title", paper.Title)
	}

	c.logger.Info("arxiv search done", "found", len(papers))
	return papers, nil
}

func (c *ArxivClient) parseEntry(item *gofeed.Item, since time.Time) (domain.RawPaper, bool) {
	if item == nil {
		return domain.RawPaper{}, false
	}

	// Entry ids look like http://arxiv.org/abs/2501.12345v1.
	id := item.GUID
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	title := collapseSpace(item.Title)
	if id == "" || title == "" {
		return domain.RawPaper{}, false
	}

	var published, updated time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		updated = *item.UpdatedParsed
	}
	if published.Before(since) && updated.Before(since) {
		return domain.RawPaper{}, false
	}

	authors := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	year := published.Year()
	if year == 1 {
		year = updated.Year()
	}

	return domain.RawPaper{
		NativeID: id,
		Title:    title,
		Authors:  authors,
		Venue:    "arXiv",
		Year:     year,
		URL:      strings.Replace(item.GUID, "/abs/", "/pdf/", 1) + ".pdf",
		Abstract: collapseSpace(item.Description),
		Source:   domain.SourceArxiv,
	}, true
}
