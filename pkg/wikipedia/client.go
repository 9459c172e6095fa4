package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mnandhu/learningpath/internal/util"
	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/ratelimit"
)

// Service is the rate-limiter key for all Wikipedia calls.
const Service = "wikipedia"

// Page is the result of one title lookup against the encyclopedia.
type Page struct {
	Title            string
	URL              string
	Summary          string
	Categories       []string
	IsDisambiguation bool
	// RedirectedFrom is the requested title when the lookup followed a
	// redirect; empty for direct hits.
	RedirectedFrom string
}

// Client talks to the MediaWiki Action API. Every request passes through
// the shared rate limiter and transient failures are retried with backoff.
type Client struct {
	apiURL     string
	userAgent  string
	maxRetries int

	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClientParams defines the configuration for creating a Client.
type NewClientParams struct {
	Config  config.Config
	Limiter *ratelimit.Limiter
}

// NewClient creates a MediaWiki API client.
func NewClient(params NewClientParams) *Client {
	return &Client{
		apiURL:     params.Config.WikipediaAPIURL,
		userAgent:  params.Config.WikipediaUserAgent,
		maxRetries: params.Config.MaxRetries,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    params.Limiter,
	}
}

type apiPage struct {
	Title      string `json:"title"`
	Missing    bool   `json:"missing"`
	Extract    string `json:"extract"`
	FullURL    string `json:"fullurl"`
	PageProps  map[string]string `json:"pageprops"`
	Categories []struct {
		Title string `json:"title"`
	} `json:"categories"`
	Links []struct {
		Title string `json:"title"`
	} `json:"links"`
	Description string `json:"description"`
}

type apiResponse struct {
	Query struct {
		Pages     []apiPage `json:"pages"`
		Redirects []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"redirects"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
	Parse struct {
		Sections []struct {
			Line string `json:"line"`
		} `json:"sections"`
	} `json:"parse"`
}

// Lookup resolves a title to its page, following redirects server-side.
// A missing page returns (nil, nil); disambiguation pages are flagged, not
// resolved.
func (c *Client) Lookup(ctx context.Context, title string) (*Page, error) {
	res, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"titles":      {title},
		"redirects":   {"1"},
		"prop":        {"extracts|info|categories|pageprops"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"cllimit":     {"max"},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Query.Pages) == 0 || res.Query.Pages[0].Missing {
		return nil, nil
	}

	p := res.Query.Pages[0]
	page := &Page{
		Title:   p.Title,
		URL:     p.FullURL,
		Summary: strings.TrimSpace(p.Extract),
	}
	if _, ok := p.PageProps["disambiguation"]; ok {
		page.IsDisambiguation = true
	}
	for _, cat := range p.Categories {
		page.Categories = append(page.Categories, strings.TrimPrefix(cat.Title, "Category:"))
	}
	for _, redirect := range res.Query.Redirects {
		if redirect.To == p.Title {
			page.RedirectedFrom = redirect.From
			break
		}
	}
	return page, nil
}

// Content fetches the full plain-text extract of a page.
func (c *Client) Content(ctx context.Context, title string) (string, error) {
	res, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"titles":      {title},
		"redirects":   {"1"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
	})
	if err != nil {
		return "", err
	}
	if len(res.Query.Pages) == 0 || res.Query.Pages[0].Missing {
		return "", nil
	}
	return res.Query.Pages[0].Extract, nil
}

// Sections returns the page's table of contents as a flat list of section
// headings.
func (c *Client) Sections(ctx context.Context, title string) ([]string, error) {
	res, err := c.get(ctx, url.Values{
		"action":   {"parse"},
		"page":     {title},
		"prop":     {"sections"},
		"redirects": {"1"},
	})
	if err != nil {
		return nil, err
	}
	sections := make([]string, 0, len(res.Parse.Sections))
	for _, s := range res.Parse.Sections {
		sections = append(sections, s.Line)
	}
	return sections, nil
}

// DisambiguationOptions lists the article links on a disambiguation page,
// the candidate subjects sharing the ambiguous title.
func (c *Client) DisambiguationOptions(ctx context.Context, title string) ([]string, error) {
	res, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"links"},
		"plnamespace": {"0"},
		"pllimit":     {"max"},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Query.Pages) == 0 {
		return nil, nil
	}
	options := make([]string, 0, len(res.Query.Pages[0].Links))
	for _, link := range res.Query.Pages[0].Links {
		if strings.Contains(link.Title, "(disambiguation)") {
			continue
		}
		options = append(options, link.Title)
	}
	return options, nil
}

// Descriptions returns the short description for each given title, where one
// exists. Missing descriptions are simply absent from the result.
func (c *Client) Descriptions(ctx context.Context, titles []string) (map[string]string, error) {
	if len(titles) == 0 {
		return map[string]string{}, nil
	}
	descriptions := make(map[string]string, len(titles))
	// The API caps title batches at 50 per request.
	for start := 0; start < len(titles); start += 50 {
		end := min(start+50, len(titles))
		res, err := c.get(ctx, url.Values{
			"action": {"query"},
			"titles": {strings.Join(titles[start:end], "|")},
			"prop":   {"description"},
		})
		if err != nil {
			return nil, err
		}
		for _, p := range res.Query.Pages {
			if p.Description != "" {
				descriptions[p.Title] = p.Description
			}
		}
	}
	return descriptions, nil
}

// Search runs a full-text search and returns matching page titles.
func (c *Client) Search(ctx context.Context, term string) ([]string, error) {
	res, err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {term},
		"srlimit":  {"5"},
	})
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(res.Query.Search))
	for _, hit := range res.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	return util.RetryBackoff(ctx, util.BackoffParams{
		MaxTries:  c.maxRetries,
		BaseDelay: time.Second,
	}, func(ctx context.Context) (*apiResponse, error) {
		if err := c.limiter.Acquire(ctx, Service); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("wikipedia request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			logger.Debug("Wikipedia API returned non-OK status", "status", resp.StatusCode)
			return nil, fmt.Errorf("wikipedia api returned status %d", resp.StatusCode)
		}

		res := new(apiResponse)
		if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
			return nil, fmt.Errorf("failed to decode wikipedia response: %w", err)
		}
		return res, nil
	})
}
