package datasource

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/seenimoa/stockanalyzer/internal/apperr"
)

// FetchLogo downloads a company logo image.
func (c *Client) FetchLogo(ctx context.Context, logoURL string) ([]byte, error) {
	const op = "datasource.FetchLogo"
	if logoURL == "" {
		return nil, apperr.E(apperr.KindNotFound, op, "no logo url", nil)
	}
	body, err := c.get(ctx, sourceLogo, logoURL, headers{"Accept": "image/png,image/jpeg,image/*;q=0.8"})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, apperr.E(apperr.KindNotFound, op, "empty logo from "+logoURL, nil)
	}
	// Decode fully: a truncated download still has a valid header.
	if _, format, err := image.Decode(bytes.NewReader(body)); err != nil {
		return nil, apperr.E(apperr.KindParse, op, "unreadable logo from "+logoURL, err)
	} else if format != "png" && format != "jpeg" {
		return nil, apperr.E(apperr.KindParse, op, "unsupported logo type "+format, nil)
	}
	return body, nil
}
