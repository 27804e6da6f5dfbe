package fetcher

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	domainerrors "token-metadata.backend/internal/domain/errors"
)

// Gateways maps content-addressed schemes to HTTP gateways.
type Gateways struct {
	IPFS    string
	Arweave string
}

// ResolveURL turns ipfs://, ar:// and http(s) uris into a fetchable https url.
func (g Gateways) ResolveURL(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		path := strings.TrimPrefix(uri, "ipfs://")
		path = strings.TrimPrefix(path, "ipfs/")
		return strings.TrimRight(g.IPFS, "/") + "/ipfs/" + path, nil
	case strings.HasPrefix(uri, "ar://"):
		return strings.TrimRight(g.Arweave, "/") + "/" + strings.TrimPrefix(uri, "ar://"), nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		if _, err := url.Parse(uri); err != nil {
			return "", fmt.Errorf("%w: %v", domainerrors.ErrUnsupportedScheme, err)
		}
		return uri, nil
	default:
		return "", fmt.Errorf("%w: %q", domainerrors.ErrUnsupportedScheme, schemeOf(uri))
	}
}

// ResolveHost returns the hostname a uri is fetched from, empty for data: uris
// and anything that cannot be resolved.
func (g Gateways) ResolveHost(uri string) string {
	if strings.HasPrefix(uri, "data:") {
		return ""
	}
	resolved, err := g.ResolveURL(uri)
	if err != nil {
		return ""
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func schemeOf(uri string) string {
	if i := strings.Index(uri, ":"); i > 0 {
		return uri[:i]
	}
	return uri
}

// decodeDataURI supports `data:[<mediatype>][;base64],<data>`.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return nil, fmt.Errorf("%w: data uri without payload", domainerrors.ErrMalformedMetadata)
	}
	header, payload := rest[:comma], rest[comma+1:]
	if strings.HasSuffix(header, ";base64") {
		out, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainerrors.ErrMalformedMetadata, err)
		}
		return out, nil
	}
	out, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrMalformedMetadata, err)
	}
	return []byte(out), nil
}
