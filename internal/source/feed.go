package source

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"modbot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Feed polls one RSS or Atom feed. Every entry is treated as a submission
// whose media source is the host of its link.
type Feed struct {
	url    string
	client HTTPClient
	now    func() time.Time
}

// NewFeed creates a Feed source for url.
func NewFeed(url string, client HTTPClient) *Feed {
	return &Feed{url: url, client: client, now: time.Now}
}

// Platform returns the platform tag of feed items.
func (f *Feed) Platform() string { return model.PlatformRSS }

// Name returns the feed URL.
func (f *Feed) Name() string { return f.url }

// Fetch downloads the feed and converts its entries to content items.
func (f *Feed) Fetch(ctx context.Context) ([]model.ContentItem, error) {
	feed, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]model.ContentItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, f.convert(feed.Title, it))
	}
	return items, nil
}

func (f *Feed) download(ctx context.Context) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "modbot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (f *Feed) convert(feedTitle string, it *gofeed.Item) model.ContentItem {
	created := f.published(it)

	var author string
	if it.Author != nil {
		author = it.Author.Name
	}
	body := it.Description
	if body == "" {
		body = it.Content
	}

	var host string
	if u, err := url.Parse(it.Link); err == nil {
		host = u.Host
	}

	return model.ContentItem{
		ID:         shortID(ItemGUID(it)),
		Platform:   model.PlatformRSS,
		Source:     feedTitle,
		Kind:       model.KindSubmission,
		Author:     author,
		Title:      it.Title,
		Body:       body,
		Permalink:  it.Link,
		CreatedUTC: created.Unix(),
		Extra: &model.SubmissionExtra{
			MediaSource: host,
			MediaTitle:  it.Title,
		},
	}
}

// published returns the entry date. Dates gofeed could not parse get a
// second attempt with dateparse before falling back to the current time.
func (f *Feed) published(it *gofeed.Item) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return *it.PublishedParsed
	case it.UpdatedParsed != nil:
		return *it.UpdatedParsed
	}
	for _, raw := range []string{it.Published, it.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return t
		}
	}
	return f.now()
}

// shortID keeps item keys within Telegram's 64-byte callback data limit.
func shortID(guid string) string {
	h := sha256.Sum256([]byte(guid))
	return fmt.Sprintf("%x", h[:12])
}

// ItemGUID returns the GUID for a feed entry.
// If the entry has no GUID, a SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}
