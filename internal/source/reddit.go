package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"modbot/internal/model"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"
	redditWebURL  = "https://reddit.com"
)

// RedditConfig configures a Reddit source.
type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddits   []string
	// Username and Password of a moderator account switch authentication
	// to the password grant, which the reports queue requires.
	Username string
	Password string
	// Limit is the listing page size, at most 100.
	Limit int
	// AuthURL and APIURL override the Reddit endpoints.
	AuthURL string
	APIURL  string
}

// Reddit polls subreddits for new submissions and comments using the
// application-only OAuth flow.
type Reddit struct {
	cfg    RedditConfig
	client *resty.Client
	log    *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string      `json:"kind"`
			Data redditThing `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Selftext      string       `json:"selftext"`
	Body          string       `json:"body"`
	Author        string       `json:"author"`
	Subreddit     string       `json:"subreddit"`
	URL           string       `json:"url"`
	Permalink     string       `json:"permalink"`
	CreatedUTC    float64      `json:"created_utc"`
	LinkFlairText string       `json:"link_flair_text"`
	Media         *redditMedia `json:"media"`
	SecureMedia   *redditMedia `json:"secure_media"`

	// Entries are [reason, count, ...] for users and [reason, moderator]
	// for moderators.
	UserReports [][]any `json:"user_reports"`
	ModReports  [][]any `json:"mod_reports"`
}

type redditMedia struct {
	Oembed *struct {
		AuthorURL  string `json:"author_url"`
		AuthorName string `json:"author_name"`
		Title      string `json:"title"`
	} `json:"oembed"`
}

// NewReddit creates a Reddit source.
func NewReddit(cfg RedditConfig, log *slog.Logger) *Reddit {
	if cfg.AuthURL == "" {
		cfg.AuthURL = redditAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = redditAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "modbot/1.0"
	}
	if cfg.Limit <= 0 || cfg.Limit > 100 {
		cfg.Limit = 100
	}
	return &Reddit{
		cfg:    cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		log:    log,
	}
}

// Platform returns the platform tag of Reddit items.
func (r *Reddit) Platform() string { return model.PlatformReddit }

// Name returns a human-readable source name.
func (r *Reddit) Name() string { return "reddit" }

// IsEnabled reports whether credentials and at least one subreddit are set.
func (r *Reddit) IsEnabled() bool {
	return r.cfg.ClientID != "" && r.cfg.ClientSecret != "" && len(r.cfg.Subreddits) > 0
}

// ReportsEnabled reports whether the source can read the reports queue.
func (r *Reddit) ReportsEnabled() bool {
	return r.IsEnabled() && r.cfg.Username != "" && r.cfg.Password != ""
}

// Fetch returns the newest submissions and comments of every configured
// subreddit. A failing subreddit is logged and skipped; an error is
// returned only when nothing could be fetched.
func (r *Reddit) Fetch(ctx context.Context) ([]model.ContentItem, error) {
	if !r.IsEnabled() {
		return nil, nil
	}
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit auth: %w", err)
	}

	var items []model.ContentItem
	var errs []error
	for _, sub := range r.cfg.Subreddits {
		for _, listing := range []string{"new", "comments"} {
			got, err := r.listing(ctx, token, sub, listing)
			if err != nil {
				r.log.Error("fetch listing", "subreddit", sub, "listing", listing, "error", err)
				errs = append(errs, err)
				continue
			}
			items = append(items, got...)
		}
	}
	if len(items) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

func (r *Reddit) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.expires) {
		return r.token, nil
	}

	form := map[string]string{"grant_type": "client_credentials"}
	if r.cfg.Username != "" {
		form = map[string]string{
			"grant_type": "password",
			"username":   r.cfg.Username,
			"password":   r.cfg.Password,
		}
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.cfg.UserAgent).
		SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret).
		SetFormData(form).
		Post(r.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	var auth redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &auth); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if auth.AccessToken == "" {
		return "", errors.New("empty access token")
	}

	r.token = auth.AccessToken
	// Refresh a minute early.
	r.expires = time.Now().Add(time.Duration(auth.ExpiresIn)*time.Second - time.Minute)
	return r.token, nil
}

// get fetches one listing page of a subreddit, e.g. "new" or "about/reports".
func (r *Reddit) get(ctx context.Context, token, subreddit, listing string) (*redditListing, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("User-Agent", r.cfg.UserAgent).
		SetQueryParam("limit", fmt.Sprint(r.cfg.Limit)).
		Get(fmt.Sprintf("%s/r/%s/%s.json", r.cfg.APIURL, subreddit, listing))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", listing, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		r.mu.Lock()
		r.token = ""
		r.mu.Unlock()
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var l redditListing
	if err := json.Unmarshal(resp.Body(), &l); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &l, nil
}

func (r *Reddit) listing(ctx context.Context, token, subreddit, listing string) ([]model.ContentItem, error) {
	l, err := r.get(ctx, token, subreddit, listing)
	if err != nil {
		return nil, err
	}

	items := make([]model.ContentItem, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		switch child.Kind {
		case "t3":
			items = append(items, submissionItem(child.Data))
		case "t1":
			items = append(items, commentItem(child.Data))
		}
	}
	return items, nil
}

func submissionItem(t redditThing) model.ContentItem {
	body := t.Selftext
	if body == "" {
		body = t.URL
	}
	extra := &model.SubmissionExtra{Flair: t.LinkFlairText}
	for _, m := range []*redditMedia{t.Media, t.SecureMedia} {
		if m == nil || m.Oembed == nil {
			continue
		}
		extra.MediaSource = m.Oembed.AuthorURL
		extra.MediaTitle = m.Oembed.Title
		break
	}
	return model.ContentItem{
		ID:         t.ID,
		Platform:   model.PlatformReddit,
		Source:     t.Subreddit,
		Kind:       model.KindSubmission,
		Author:     t.Author,
		Title:      t.Title,
		Body:       body,
		Permalink:  redditWebURL + t.Permalink,
		CreatedUTC: int64(t.CreatedUTC),
		Extra:      extra,
	}
}

func commentItem(t redditThing) model.ContentItem {
	return model.ContentItem{
		ID:         t.ID,
		Platform:   model.PlatformReddit,
		Source:     t.Subreddit,
		Kind:       model.KindComment,
		Author:     t.Author,
		Body:       t.Body,
		Permalink:  redditWebURL + t.Permalink,
		CreatedUTC: int64(t.CreatedUTC),
	}
}

// FetchReports returns the reports queue of every configured subreddit.
// Like Fetch, a failing subreddit is logged and skipped.
func (r *Reddit) FetchReports(ctx context.Context) ([]model.ContentReport, error) {
	if !r.ReportsEnabled() {
		return nil, nil
	}
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit auth: %w", err)
	}

	var reports []model.ContentReport
	var errs []error
	for _, sub := range r.cfg.Subreddits {
		l, err := r.get(ctx, token, sub, "about/reports")
		if err != nil {
			r.log.Error("fetch reports", "subreddit", sub, "error", err)
			errs = append(errs, err)
			continue
		}
		for _, child := range l.Data.Children {
			var rep model.ContentReport
			switch child.Kind {
			case "t3":
				rep = reportOf(submissionItem(child.Data), child.Data)
				rep.Content = child.Data.Title
			case "t1":
				rep = reportOf(commentItem(child.Data), child.Data)
			default:
				continue
			}
			reports = append(reports, rep)
		}
	}
	if len(reports) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reports, nil
}

func reportOf(it model.ContentItem, t redditThing) model.ContentReport {
	return model.ContentReport{
		ItemID:     it.ID,
		Platform:   it.Platform,
		Source:     it.Source,
		Kind:       it.Kind,
		Author:     it.Author,
		Content:    it.Body,
		Permalink:  it.Permalink,
		CreatedUTC: it.CreatedUTC,
		Reasons:    countReasons(t.UserReports, t.ModReports),
	}
}

// countReasons totals reports per reason. A user entry carries its own
// count; every moderator entry counts once.
func countReasons(user, mod [][]any) map[string]int {
	counts := make(map[string]int)
	for _, e := range user {
		n := 1
		if len(e) > 1 {
			if f, ok := e[1].(float64); ok && f >= 1 {
				n = int(f)
			}
		}
		counts[reportReason(e)] += n
	}
	for _, e := range mod {
		counts[reportReason(e)]++
	}
	return counts
}

func reportReason(entry []any) string {
	if len(entry) > 0 {
		if s, ok := entry[0].(string); ok && s != "" {
			return s
		}
	}
	return "no reason given"
}
