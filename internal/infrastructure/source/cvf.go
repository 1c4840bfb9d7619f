package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/httpclient"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// CVFClient scrapes the open-access proceedings index of CVPR, ICCV and
// ECCV. Listing pages carry titles and PDF links but no abstracts.
type CVFClient struct {
	fetcher *httpclient.Fetcher
	baseURL string
	venues  []string
	years   []int
	delay   time.Duration
	logger  *slog.Logger
}

var _ ports.SourceClient = (*CVFClient)(nil)

// NewCVFClient wires the shared fetcher against the proceedings site.
func NewCVFClient(fetcher *httpclient.Fetcher, baseURL string, venues []string, years []int, delay time.Duration, logger *slog.Logger) *CVFClient {
	return &CVFClient{
		fetcher: fetcher,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		venues:  venues,
		years:   years,
		delay:   delay,
		logger:  logger,
	}
}

// Name identifies the client inside the registry.
func (c *CVFClient) Name() string { return string(domain.SourceCVF) }

// Search scrapes each configured venue/year page for titles matching
// the keywords. Years outside the since..now window are skipped, since
// proceedings are dated by conference year. The error is non-nil only
// when every page fetch failed.
func (c *CVFClient) Search(ctx context.Context, keywords []string, since time.Time, limit int) ([]domain.RawPaper, error) {
	years := c.yearsInWindow(since)
	if len(years) == 0 {
		c.logger.Info("no cvf years fall inside the window", "since", since)
		return nil, nil
	}

	var (
		papers   []domain.RawPaper
		attempts int
		failures int
		lastErr  error
	)

	for _, venue := range c.venues {
		for _, year := range years {
			if len(papers) >= limit {
				break
			}

			pageURL := fmt.Sprintf("%s/%s%d", c.baseURL, venue, year)
			attempts++

			c.logger.Info("scraping cvf proceedings", "venue", venue, "year", year)
			body, err := c.fetcher.Get(ctx, pageURL, c.headers())
			pause(ctx, c.delay)
			if err != nil {
				failures++
				lastErr = err
				c.logger.Warn("cvf page fetch failed", "url", pageURL, "error", err)
				continue
			}

			found, err := parseProceedings(body, c.baseURL, venue, year, keywords)
			if err != nil {
				failures++
				lastErr = err
				c.logger.Warn("cvf page parse failed", "url", pageURL, "error", err)
				continue
			}
			papers = append(papers, found...)
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, fmt.Errorf("cvf search: %w: %w", ports.ErrSourceUnavailable, lastErr)
	}

	if len(papers) > limit {
		papers = papers[:limit]
	}
	c.logger.Info("cvf search done", "found", len(papers))
	return papers, nil
}

func (c *CVFClient) headers() map[string]string {
	return map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         c.baseURL + "/",
	}
}

func (c *CVFClient) yearsInWindow(since time.Time) []int {
	current := time.Now().Year()
	years := make([]int, 0, len(c.years))
	for _, y := range c.years {
		if y >= since.Year() && y <= current {
			years = append(years, y)
		}
	}
	return years
}

// parseProceedings extracts matching papers from one proceedings page.
// Older pages list papers as dt/dd definition pairs, newer ones as
// div-based blocks; the dt pattern is tried first.
func parseProceedings(html []byte, baseURL, venue string, year int, keywords []string) ([]domain.RawPaper, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	papers := parseDefinitionList(doc, baseURL, venue, year, keywords)
	if len(papers) == 0 {
		papers = parseTitleBlocks(doc, baseURL, venue, year, keywords)
	}
	return papers, nil
}

func parseDefinitionList(doc *goquery.Document, baseURL, venue string, year int, keywords []string) []domain.RawPaper {
	var papers []domain.RawPaper

	doc.Find("dt.ptitle").Each(func(_ int, dt *goquery.Selection) {
		title := strings.TrimSpace(dt.Find("a").First().Text())
		if title == "" || !matchesKeywords(title, keywords) {
			return
		}

		// The dd siblings up to the next dt belong to this entry.
		entry := dt.NextUntil("dt")
		pdfLink := findPDFLink(entry, baseURL)
		if pdfLink == "" {
			return
		}

		papers = append(papers, domain.RawPaper{
			Title:   title,
			Authors: splitAuthors(entry.Find("div.authors").First().Text()),
			Venue:   venue,
			Year:    year,
			URL:     pdfLink,
			Source:  domain.SourceCVF,
		})
	})

	return papers
}

func parseTitleBlocks(doc *goquery.Document, baseURL, venue string, year int, keywords []string) []domain.RawPaper {
	var papers []domain.RawPaper

	doc.Find("div.papertitle").Each(func(_ int, div *goquery.Selection) {
		title := strings.TrimSpace(div.Text())
		if title == "" || !matchesKeywords(title, keywords) {
			return
		}

		parent := div.ParentsFiltered("div").First()
		if parent.Length() == 0 {
			return
		}
		pdfLink := findPDFLink(parent, baseURL)
		if pdfLink == "" {
			return
		}

		papers = append(papers, domain.RawPaper{
			Title:   title,
			Authors: splitAuthors(parent.Find("div.authors").First().Text()),
			Venue:   venue,
			Year:    year,
			URL:     pdfLink,
			Source:  domain.SourceCVF,
		})
	})

	return papers
}

// findPDFLink returns the first anchor under sel whose href points at a
// PDF, resolved against baseURL when relative.
func findPDFLink(sel *goquery.Selection, baseURL string) string {
	var link string
	sel.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(strings.ToLower(href), "pdf") {
			return true
		}
		link = href
		return false
	})

	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	if strings.HasPrefix(link, "/") {
		return baseURL + link
	}
	return baseURL + "/" + link
}

func splitAuthors(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}
