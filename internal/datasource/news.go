package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// articleWorkers bounds concurrent article downloads for one symbol.
const articleWorkers = 3

// FetchNews returns up to max recent articles for symbol. Links come from
// the stockanalysis overview page, falling back to the Yahoo Finance RSS
// feed when it yields none. Bodies that cannot be fetched stay empty.
func (c *Client) FetchNews(ctx context.Context, symbol string, max int) ([]models.NewsItem, error) {
	symbol = utils.NormalizeTicker(symbol)
	if max <= 0 {
		max = c.cfg.MaxNews
	}

	items, linkErr := c.FetchNewsLinks(ctx, symbol, max)
	if errors.Is(linkErr, context.Canceled) {
		return nil, linkErr
	}
	if len(items) == 0 {
		rss, rssErr := c.FetchRSSNews(ctx, symbol, max)
		if rssErr != nil {
			if linkErr != nil {
				return nil, errors.Join(linkErr, rssErr)
			}
			return nil, rssErr
		}
		items = rss
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(articleWorkers)
	for i := range items {
		if items[i].Body != "" {
			continue
		}
		g.Go(func() error {
			body, err := c.FetchArticle(gctx, items[i].URL)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				c.log.Debugw("article body unavailable", "url", items[i].URL, "error", err)
				return nil
			}
			items[i].Body = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// rssURL builds the headline feed URL for symbol.
func (c *Client) rssURL(symbol string) string {
	q := url.Values{"s": {symbol}, "region": {"US"}, "lang": {"en-US"}}
	return c.cfg.RSSURL + "?" + q.Encode()
}

// FetchRSSNews reads the Yahoo Finance headline feed. Item descriptions
// become the initial body.
func (c *Client) FetchRSSNews(ctx context.Context, symbol string, max int) ([]models.NewsItem, error) {
	symbol = utils.NormalizeTicker(symbol)
	feedURL := c.rssURL(symbol)
	body, err := c.get(ctx, sourceRSS, feedURL, headers{"Accept": "application/rss+xml, application/xml;q=0.9, */*;q=0.8"})
	if err != nil {
		return nil, err
	}
	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.E(apperr.KindParse, sourceRSS, fmt.Sprintf("parse feed for %s", symbol), err)
	}

	items := make([]models.NewsItem, 0, min(max, len(feed.Items)))
	for _, it := range feed.Items {
		if len(items) == max {
			break
		}
		if it.Link == "" || strings.TrimSpace(it.Title) == "" {
			continue
		}
		n := models.NewsItem{
			Title:  strings.TrimSpace(it.Title),
			URL:    it.Link,
			Source: hostOf(it.Link),
			Body:   models.TruncateRunes(cleanHTML(it.Description), MaxArticleChars),
		}
		if it.PublishedParsed != nil {
			n.Published = it.PublishedParsed.UTC()
		}
		items = append(items, n)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
