package handlers

import (
	"encoding/json"
	"strings"

	"github.com/volatiletech/null/v8"
	"token-metadata.backend/internal/domain/entities"
)

type metadataView struct {
	SIP                  int                          `json:"sip"`
	Name                 string                       `json:"name"`
	Description          null.String                  `json:"description"`
	Image                null.String                  `json:"image"`
	CachedImage          null.String                  `json:"cached_image"`
	CachedThumbnailImage null.String                  `json:"cached_thumbnail_image"`
	Attributes           []entities.MetadataAttribute `json:"attributes,omitempty"`
	Properties           map[string]json.RawMessage   `json:"properties,omitempty"`
}

type ftResponse struct {
	Name              null.String   `json:"name"`
	Symbol            null.String   `json:"symbol"`
	Decimals          null.Int      `json:"decimals"`
	TotalSupply       *string       `json:"total_supply"`
	TokenURI          null.String   `json:"token_uri"`
	Description       null.String   `json:"description"`
	ImageURI          null.String   `json:"image_uri"`
	ImageThumbnailURI null.String   `json:"image_thumbnail_uri"`
	ImageCanonicalURI null.String   `json:"image_canonical_uri"`
	TxID              string        `json:"tx_id"`
	SenderAddress     string        `json:"sender_address"`
	Metadata          *metadataView `json:"metadata"`
}

type nftResponse struct {
	TokenURI null.String   `json:"token_uri"`
	Metadata *metadataView `json:"metadata"`
}

type sftResponse struct {
	TokenURI    null.String   `json:"token_uri"`
	Decimals    null.Int      `json:"decimals"`
	TotalSupply *string       `json:"total_supply"`
	Metadata    *metadataView `json:"metadata"`
}

func newMetadataView(b *entities.MetadataBundle) *metadataView {
	m := b.Metadata
	return &metadataView{
		SIP:                  m.SIP,
		Name:                 m.Name,
		Description:          m.Description,
		Image:                m.Image,
		CachedImage:          m.CachedImage,
		CachedThumbnailImage: m.CachedThumbnailImage,
		Attributes:           m.Attributes,
		Properties:           b.Properties,
	}
}

func tokenURI(t *entities.Token) null.String {
	if uri := t.ResolvedURI(); uri != "" {
		return null.StringFrom(uri)
	}
	return null.String{}
}

func totalSupply(t *entities.Token) *string {
	if !t.TotalSupply.Valid {
		return nil
	}
	s := t.TotalSupply.Decimal.String()
	return &s
}

// senderAddress is the deployer part of a contract principal.
func senderAddress(principal string) string {
	addr, _, _ := strings.Cut(principal, ".")
	return addr
}

func newFtResponse(b *entities.MetadataBundle) *ftResponse {
	meta := newMetadataView(b)
	imageURI := meta.CachedImage
	if !imageURI.Valid {
		imageURI = meta.Image
	}
	return &ftResponse{
		Name:              b.Token.Name,
		Symbol:            b.Token.Symbol,
		Decimals:          b.Token.Decimals,
		TotalSupply:       totalSupply(b.Token),
		TokenURI:          tokenURI(b.Token),
		Description:       meta.Description,
		ImageURI:          imageURI,
		ImageThumbnailURI: meta.CachedThumbnailImage,
		ImageCanonicalURI: meta.Image,
		TxID:              b.Contract.TxID,
		SenderAddress:     senderAddress(b.Contract.Principal),
		Metadata:          meta,
	}
}

func newNftResponse(b *entities.MetadataBundle) *nftResponse {
	return &nftResponse{
		TokenURI: tokenURI(b.Token),
		Metadata: newMetadataView(b),
	}
}

func newSftResponse(b *entities.MetadataBundle) *sftResponse {
	return &sftResponse{
		TokenURI:    tokenURI(b.Token),
		Decimals:    b.Token.Decimals,
		TotalSupply: totalSupply(b.Token),
		Metadata:    newMetadataView(b),
	}
}
