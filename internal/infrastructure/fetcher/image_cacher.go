package fetcher

import (
	"context"
	"strings"

	"github.com/volatiletech/null/v8"
)

// GatewayImageCacher stands in for a CDN upload: the cached image is the
// gateway-resolved url of the original, used for both sizes.
type GatewayImageCacher struct {
	gateways Gateways
}

func NewGatewayImageCacher(gateways Gateways) *GatewayImageCacher {
	return &GatewayImageCacher{gateways: gateways}
}

func (c *GatewayImageCacher) Cache(_ context.Context, image string) (null.String, null.String, error) {
	if image == "" {
		return null.String{}, null.String{}, nil
	}
	if strings.HasPrefix(image, "data:") {
		return null.StringFrom(image), null.StringFrom(image), nil
	}
	resolved, err := c.gateways.ResolveURL(image)
	if err != nil {
		// unsupported image schemes are kept out of the cache columns, the raw value stays on the record
		return null.String{}, null.String{}, nil
	}
	return null.StringFrom(resolved), null.StringFrom(resolved), nil
}
