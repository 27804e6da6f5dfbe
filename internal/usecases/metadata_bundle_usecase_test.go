package usecases_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/usecases"
)

func seedRecords(t *testing.T, env *testEnv, tok *entities.Token, withLocale bool) {
	t.Helper()
	records := []*entities.MetadataRecord{{
		SIP:         16,
		Name:        "Punk #1",
		Description: null.StringFrom("A punk"),
		Image:       null.StringFrom("ipfs://img/1.png"),
		Attributes: []entities.MetadataAttribute{
			{TraitType: "hat", Value: json.RawMessage(`"cap"`)},
		},
		Properties: []entities.MetadataProperty{
			{Name: "artist", Value: json.RawMessage(`null`)},
			{Name: "collection", Value: json.RawMessage(`"Punks"`)},
			{Name: "empty", Value: json.RawMessage(`""`)},
			{Name: "edition", Value: json.RawMessage(`3`)},
		},
		CreatedAt: env.clock.Now(),
		UpdatedAt: env.clock.Now(),
	}}
	if withLocale {
		records = append(records, &entities.MetadataRecord{
			Locale:    null.StringFrom("es-MX"),
			SIP:       16,
			Name:      "Punk número 1",
			CreatedAt: env.clock.Now(),
			UpdatedAt: env.clock.Now(),
		})
	}
	require.NoError(t, env.metadata.ReplaceForToken(t.Context(), tok.ID, records))
}

func TestMetadataBundle_DefaultRecord(t *testing.T) {
	env := newTestEnv(t)
	uc := usecases.NewMetadataBundleUsecase(env.contracts, env.tokens, env.metadata)
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, testTokenURITmpl)
	seedRecords(t, env, tok, true)

	bundle, err := uc.GetNftMetadataBundle(t.Context(), testPrincipal, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "Punk #1", bundle.Metadata.Name)
	require.Len(t, bundle.Metadata.Attributes, 1)
	assert.Equal(t, testPrincipal, bundle.Contract.Principal)
	assert.Equal(t, map[string]json.RawMessage{
		"collection": json.RawMessage(`"Punks"`),
		"edition":    json.RawMessage(`3`),
	}, bundle.Properties)
}

func TestMetadataBundle_LocaleRecordIsCompleteOverride(t *testing.T) {
	env := newTestEnv(t)
	uc := usecases.NewMetadataBundleUsecase(env.contracts, env.tokens, env.metadata)
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, testTokenURITmpl)
	seedRecords(t, env, tok, true)

	bundle, err := uc.GetTokenMetadataBundle(t.Context(), testPrincipal, 1, "es-MX")
	require.NoError(t, err)
	assert.Equal(t, "Punk número 1", bundle.Metadata.Name)
	assert.False(t, bundle.Metadata.Description.Valid)
	assert.Empty(t, bundle.Metadata.Attributes)
	assert.Nil(t, bundle.Properties)
}

func TestMetadataBundle_DeclaredDefaultLocaleServesDefaultRecord(t *testing.T) {
	env := newTestEnv(t)
	uc := usecases.NewMetadataBundleUsecase(env.contracts, env.tokens, env.metadata)
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, testTokenURITmpl)
	require.NoError(t, env.metadata.ReplaceForToken(t.Context(), tok.ID, []*entities.MetadataRecord{
		{SIP: 16, Name: "Punk #1", DefaultLocale: null.StringFrom("en"), CreatedAt: env.clock.Now(), UpdatedAt: env.clock.Now()},
		{Locale: null.StringFrom("es"), SIP: 16, Name: "Punk número 1", CreatedAt: env.clock.Now(), UpdatedAt: env.clock.Now()},
	}))

	bundle, err := uc.GetTokenMetadataBundle(t.Context(), testPrincipal, 1, "en")
	require.NoError(t, err)
	assert.Equal(t, "Punk #1", bundle.Metadata.Name)

	bundle, err = uc.GetTokenMetadataBundle(t.Context(), testPrincipal, 1, "es")
	require.NoError(t, err)
	assert.Equal(t, "Punk número 1", bundle.Metadata.Name)

	_, err = uc.GetTokenMetadataBundle(t.Context(), testPrincipal, 1, "fr")
	assert.ErrorIs(t, err, domainerrors.ErrLocaleNotFound)
}

func TestMetadataBundle_Errors(t *testing.T) {
	env := newTestEnv(t)
	uc := usecases.NewMetadataBundleUsecase(env.contracts, env.tokens, env.metadata)
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 2)
	processed := env.seedToken(t, contract, 1, testTokenURITmpl)
	env.seedToken(t, contract, 2, testTokenURITmpl)
	seedRecords(t, env, processed, false)
	ctx := t.Context()

	_, err := uc.GetNftMetadataBundle(ctx, testPrincipal, 1, "es-MX")
	assert.ErrorIs(t, err, domainerrors.ErrLocaleNotFound)

	_, err = uc.GetNftMetadataBundle(ctx, testPrincipal, 2, "")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotProcessed)
	_, err = uc.GetNftMetadataBundle(ctx, testPrincipal, 2, "es-MX")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotProcessed)

	_, err = uc.GetNftMetadataBundle(ctx, testPrincipal, 99, "")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotFound)
	_, err = uc.GetNftMetadataBundle(ctx, testFTPrincipal, 1, "")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotFound)

	// an nft contract is not served on the ft or sft routes
	_, err = uc.GetFtMetadataBundle(ctx, testPrincipal, "")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotFound)
	_, err = uc.GetSftMetadataBundle(ctx, testPrincipal, 1, "")
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotFound)
}
