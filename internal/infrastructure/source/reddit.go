package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/infrastructure/httpclient"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

// redditMaxListing is the listing API's per-request ceiling.
const redditMaxListing = 100

// RedditClient reads public subreddit listings through the JSON API,
// which needs no authentication. Posts stand in for tools and
// discussion threads the academic indexes never carry.
type RedditClient struct {
	fetcher    *httpclient.Fetcher
	baseURL    string
	subreddits []string
	userAgent  string
	delay      time.Duration
	logger     *slog.Logger
}

var _ ports.SourceClient = (*RedditClient)(nil)

// NewRedditClient wires the shared fetcher against the public JSON API.
func NewRedditClient(fetcher *httpclient.Fetcher, baseURL string, subreddits []string, userAgent string, delay time.Duration, logger *slog.Logger) *RedditClient {
	return &RedditClient{
		fetcher:    fetcher,
		baseURL:    baseURL,
		subreddits: subreddits,
		userAgent:  userAgent,
		delay:      delay,
		logger:     logger,
	}
}

// Name identifies the client inside the registry.
func (c *RedditClient) Name() string { return string(domain.SourceReddit) }

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

// Search fetches the newest posts of every configured subreddit, keeps
// those created after since that mention a keyword, and merges them
// sorted by score so the most discussed land first. The error is
// non-nil only when every subreddit fetch failed.
func (c *RedditClient) Search(ctx context.Context, keywords []string, since time.Time, limit int) ([]domain.RawPaper, error) {
	listingLimit := limit
	if listingLimit > redditMaxListing {
		listingLimit = redditMaxListing
	}

	type scored struct {
		paper domain.RawPaper
		score int
	}

	var (
		posts    []scored
		failures int
		lastErr  error
	)

	for _, sub := range c.subreddits {
		listingURL := fmt.Sprintf("%s/r/%s/new.json?limit=%d", c.baseURL, sub, listingLimit)
		headers := map[string]string{"User-Agent": c.userAgent}

		var listing redditListing
		err := c.fetcher.GetJSON(ctx, listingURL, headers, &listing)
		pause(ctx, c.delay)
		if err != nil {
			failures++
			lastErr = err
			c.logger.Warn("subreddit fetch failed", "subreddit", sub, "error", err)
			continue
		}

		kept := 0
		for _, child := range listing.Data.Children {
			paper, ok := c.parsePost(child.Data, since, keywords)
			if !ok {
				continue
			}
			posts = append(posts, scored{paper: paper, score: child.Data.Score})
			kept++
		}
		c.logger.Info("subreddit listing done", "subreddit", sub, "found", kept)
	}

	if len(c.subreddits) > 0 && failures == len(c.subreddits) {
		return nil, fmt.Errorf("reddit search: %w: %w", ports.ErrSourceUnavailable, lastErr)
	}

	sort.SliceStable(posts, func(i, j int) bool { return posts[i].score > posts[j].score })
	if len(posts) > limit {
		posts = posts[:limit]
	}

	papers := make([]domain.RawPaper, len(posts))
	for i, p := range posts {
		papers[i] = p.paper
	}
	return papers, nil
}

func (c *RedditClient) parsePost(post redditPost, since time.Time, keywords []string) (domain.RawPaper, bool) {
	if post.ID == "" || post.Author == "[deleted]" || post.Author == "[removed]" {
		return domain.RawPaper{}, false
	}

	created := time.Unix(int64(post.CreatedUTC), 0).UTC()
	if created.Before(since) {
		return domain.RawPaper{}, false
	}
	if !matchesKeywords(post.Title+" "+post.SelfText, keywords) {
		return domain.RawPaper{}, false
	}

	abstract := collapseSpace(post.SelfText)
	if abstract == "" {
		abstract = collapseSpace(post.Title)
	}

	return domain.RawPaper{
		NativeID: "reddit_" + post.ID,
		Title:    collapseSpace(post.Title),
		Authors:  []string{"u/" + post.Author},
		Venue:    "r/" + post.Subreddit,
		Year:     created.Year(),
		URL:      "https://reddit.com" + post.Permalink,
		Abstract: abstract,
		Source:   domain.SourceReddit,
	}, true
}
