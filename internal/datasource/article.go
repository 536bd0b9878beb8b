package datasource

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/stockanalyzer/pkg/models"
)

// MaxArticleChars caps an extracted article body.
const MaxArticleChars = 2000

const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

// articleHeaders returns the header set a publisher accepts without a
// bot challenge.
func articleHeaders(articleURL string) headers {
	switch {
	case strings.Contains(articleURL, "reuters.com"):
		return headers{
			"User-Agent":                firefoxUA,
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.5",
			"DNT":                       "1",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
		}
	case strings.Contains(articleURL, "marketwatch.com"), strings.Contains(articleURL, "barrons.com"):
		return headers{
			"User-Agent":                chromeUA,
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Referer":                   "https://www.google.com/",
			"DNT":                       "1",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
		}
	default:
		return headers{"User-Agent": chromeUA}
	}
}

// FetchArticle downloads a news page and returns its paragraph text.
func (c *Client) FetchArticle(ctx context.Context, articleURL string) (string, error) {
	if c.articleGate != nil {
		if err := c.articleGate.Wait(ctx); err != nil {
			return "", classify(sourceArticles+" GET", articleURL, err)
		}
	}
	doc, err := c.document(ctx, sourceArticles, articleURL, articleHeaders(articleURL))
	if err != nil {
		return "", err
	}
	return articleText(doc), nil
}

// articleText joins paragraph text outside page chrome.
func articleText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header").Remove()

	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := cellText(p); t != "" {
			parts = append(parts, t)
		}
	})
	return models.TruncateRunes(strings.Join(parts, " "), MaxArticleChars)
}
