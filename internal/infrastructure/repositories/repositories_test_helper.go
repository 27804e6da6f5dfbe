package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/internal/infrastructure/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// in-memory sqlite serializes writers, one connection keeps transactions deterministic
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db), "migrate")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func seedContract(t *testing.T, db *gorm.DB, principal string, sip entities.SIP) *entities.SmartContract {
	t.Helper()
	c := &entities.SmartContract{
		ID:          uuid.New(),
		Principal:   principal,
		SIP:         sip,
		TxID:        "0x" + strings.Repeat("ab", 32),
		BlockHeight: 100,
		TokenURI:    null.StringFrom("https://meta.example.com/{id}.json"),
	}
	created, err := NewSmartContractRepository(db).Create(t.Context(), c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func seedToken(t *testing.T, db *gorm.DB, contract *entities.SmartContract, number int64, uri string) *entities.Token {
	t.Helper()
	tok := &entities.Token{
		ID:              uuid.New(),
		SmartContractID: contract.ID,
		Type:            contract.SIP.TokenType(),
		TokenNumber:     number,
	}
	if uri != "" {
		tok.URI = null.StringFrom(uri)
	}
	require.NoError(t, NewTokenRepository(db).InsertMissing(t.Context(), []*entities.Token{tok}))
	got, err := NewTokenRepository(db).GetByNumber(t.Context(), contract.ID, number)
	require.NoError(t, err)
	return got
}
