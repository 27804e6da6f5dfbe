package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/volatiletech/null/v8"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
)

// MetadataBundleUsecase assembles the metadata served for a token and locale.
// It only reads, a token whose job has not finished yet is reported as not processed.
type MetadataBundleUsecase struct {
	contracts repositories.SmartContractRepository
	tokens    repositories.TokenRepository
	metadata  repositories.MetadataRepository
}

func NewMetadataBundleUsecase(
	contracts repositories.SmartContractRepository,
	tokens repositories.TokenRepository,
	metadata repositories.MetadataRepository,
) *MetadataBundleUsecase {
	return &MetadataBundleUsecase{contracts: contracts, tokens: tokens, metadata: metadata}
}

func (u *MetadataBundleUsecase) GetFtMetadataBundle(ctx context.Context, principal, locale string) (*entities.MetadataBundle, error) {
	return u.getBundle(ctx, principal, 1, locale, entities.TokenTypeFT)
}

func (u *MetadataBundleUsecase) GetNftMetadataBundle(ctx context.Context, principal string, tokenNumber int64, locale string) (*entities.MetadataBundle, error) {
	return u.getBundle(ctx, principal, tokenNumber, locale, entities.TokenTypeNFT)
}

func (u *MetadataBundleUsecase) GetSftMetadataBundle(ctx context.Context, principal string, tokenNumber int64, locale string) (*entities.MetadataBundle, error) {
	return u.getBundle(ctx, principal, tokenNumber, locale, entities.TokenTypeSFT)
}

// GetTokenMetadataBundle resolves a token of any variant.
func (u *MetadataBundleUsecase) GetTokenMetadataBundle(ctx context.Context, principal string, tokenNumber int64, locale string) (*entities.MetadataBundle, error) {
	return u.getBundle(ctx, principal, tokenNumber, locale, "")
}

func (u *MetadataBundleUsecase) getBundle(
	ctx context.Context,
	principal string,
	tokenNumber int64,
	locale string,
	want entities.TokenType,
) (*entities.MetadataBundle, error) {
	contract, err := u.contracts.GetByPrincipal(ctx, principal)
	if err != nil {
		return nil, notFoundAsToken(err)
	}
	token, err := u.tokens.GetByNumber(ctx, contract.ID, tokenNumber)
	if err != nil {
		return nil, notFoundAsToken(err)
	}
	if want != "" && token.Type != want {
		return nil, domainerrors.ErrTokenNotFound
	}

	resolved, err := u.metadata.GetForLocale(ctx, token.ID, null.String{})
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrTokenNotProcessed
		}
		return nil, err
	}
	if locale != "" && !resolved.ServesLocale(locale) {
		resolved, err = u.metadata.GetForLocale(ctx, token.ID, null.StringFrom(locale))
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, domainerrors.ErrLocaleNotFound
			}
			return nil, err
		}
	}

	return &entities.MetadataBundle{
		Contract:   contract,
		Token:      token,
		Metadata:   resolved,
		Properties: filterProperties(resolved.Properties),
	}, nil
}

func notFoundAsToken(err error) error {
	if errors.Is(err, domainerrors.ErrNotFound) || errors.Is(err, domainerrors.ErrTokenNotFound) {
		return domainerrors.ErrTokenNotFound
	}
	return err
}

// filterProperties drops properties whose value is null or an empty string.
func filterProperties(props []entities.MetadataProperty) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(props))
	for _, p := range props {
		v := bytes.TrimSpace(p.Value)
		if len(v) == 0 || string(v) == "null" || string(v) == `""` {
			continue
		}
		out[p.Name] = p.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
