package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/httpclient"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// openAlexMaxPerPage is the API's per-page ceiling.
const openAlexMaxPerPage = 200

// OpenAlexClient queries the OpenAlex works API. The mailto parameter
// joins the polite pool, which gets a faster rate limit.
type OpenAlexClient struct {
	fetcher *httpclient.Fetcher
	baseURL string
	mailto  string
	delay   time.Duration
	logger  *slog.Logger
}

var _ ports.SourceClient = (*OpenAlexClient)(nil)

// NewOpenAlexClient wires the shared fetcher against the works API.
func NewOpenAlexClient(fetcher *httpclient.Fetcher, baseURL, mailto string, delay time.Duration, logger *slog.Logger) *OpenAlexClient {
	return &OpenAlexClient{
		fetcher: fetcher,
		baseURL: baseURL,
		mailto:  mailto,
		delay:   delay,
		logger:  logger,
	}
}

// Name identifies the client inside the registry.
func (c *OpenAlexClient) Name() string { return string(domain.SourceOpenAlex) }

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	OpenAccess            *openAlexAccess      `json:"open_access"`
}

type openAlexAuthorship struct {
	Author *openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexVenue `json:"source"`
	PDFURL string         `json:"pdf_url"`
}

type openAlexVenue struct {
	DisplayName string `json:"display_name"`
}

type openAlexAccess struct {
	OAURL string `json:"oa_url"`
}

// Search fetches works matching any of the keywords published on or
// after since. Works without an abstract are dropped: downstream
// generation has nothing to work from.
func (c *OpenAlexClient) Search(ctx context.Context, keywords []string, since time.Time, limit int) ([]domain.RawPaper, error) {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = strconv.Quote(kw)
	}

	perPage := limit
	if perPage > openAlexMaxPerPage {
		perPage = openAlexMaxPerPage
	}

	params := url.Values{}
	params.Set("search", strings.Join(quoted, " OR "))
	params.Set("filter", "from_publication_date:"+since.Format("2006-01-02"))
	params.Set("per-page", strconv.Itoa(perPage))
	params.Set("sort", "publication_date:desc")
	params.Set("mailto", c.mailto)

	var resp openAlexResponse
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/works?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("openalex search: %w: %w", ports.ErrSourceUnavailable, err)
	}
	defer pause(ctx, c.delay)

	papers := make([]domain.RawPaper, 0, len(resp.Results))
	for _, work := range resp.Results {
		paper, ok := c.parseWork(work)
		if !ok {
			continue
		}
		papers = append(papers, paper)
		c.logger.Debug("found openalex paper", "doi", paper.ExternalID, "title", paper.Title)
	}

	c.logger.Info("openalex search done", "found", len(papers))
	return papers, nil
}

func (c *OpenAlexClient) parseWork(work openAlexWork) (domain.RawPaper, bool) {
	title := collapseSpace(work.Title)
	if title == "" {
		return domain.RawPaper{}, false
	}

	abstract := reconstructAbstract(work.AbstractInvertedIndex)
	if abstract == "" {
		return domain.RawPaper{}, false
	}

	authors := make([]string, 0, len(work.Authorships))
	for _, as := range work.Authorships {
		if as.Author != nil && as.Author.DisplayName != "" {
			authors = append(authors, as.Author.DisplayName)
		}
	}

	// The DOI identifies a work across sources; the OpenAlex W-id only
	// steps in when a work has none, so no-DOI works still dedupe
	// stably instead of falling back to the title hash.
	doi := strings.TrimPrefix(work.DOI, "https://doi.org/")
	var nativeID string
	if doi == "" {
		nativeID = strings.TrimPrefix(work.ID, "https://openalex.org/")
	}

	var venue string
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		venue = work.PrimaryLocation.Source.DisplayName
	}
	if venue == "" {
		venue = "Unknown"
	}

	var year int
	if pub, err := time.Parse("2006-01-02", work.PublicationDate); err == nil {
		year = pub.Year()
	}

	// Prefer an open-access PDF, then the landing page behind the DOI.
	var link string
	if work.OpenAccess != nil && work.OpenAccess.OAURL != "" {
		link = work.OpenAccess.OAURL
	} else if work.PrimaryLocation != nil && work.PrimaryLocation.PDFURL != "" {
		link = work.PrimaryLocation.PDFURL
	} else {
		link = work.DOI
	}

	return domain.RawPaper{
		NativeID:   nativeID,
		ExternalID: doi,
		Title:      title,
		Authors:    authors,
		Venue:      venue,
		Year:       year,
		URL:        link,
		Abstract:   abstract,
		Source:     domain.SourceOpenAlex,
	}, true
}

// reconstructAbstract rebuilds the abstract text from OpenAlex's
// inverted index, which maps each word to the positions it occupies.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type placed struct {
		pos  int
		word string
	}
	positions := make([]placed, 0, len(index))
	for word, idxs := range index {
		for _, pos := range idxs {
			positions = append(positions, placed{pos: pos, word: word})
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].pos < positions[j].pos })

	words := make([]string, len(positions))
	for i, p := range positions {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}
