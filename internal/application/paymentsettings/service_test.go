package paymentsettings

import (
	"context"
	"database/sql/driver"
	"testing"

	"trubid-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUpsertAndGet(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PaymentSettings{}))
	s := &Service{DB: db}
	ctx := context.Background()
	seller := uuid.New()

	none, err := s.GetForSeller(ctx, seller)
	require.NoError(t, err)
	assert.Nil(t, none)

	first, err := s.Upsert(ctx, seller, SettingsInput{PayPalEmail: " pay@seller.test ", VenmoID: "@seller"})
	require.NoError(t, err)
	assert.Equal(t, "pay@seller.test", first.PayPalEmail)

	second, err := s.Upsert(ctx, seller, SettingsInput{CashAppID: "$seller"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "$seller", second.CashAppID)
	assert.Empty(t, second.PayPalEmail)

	var count int64
	db.Model(&domain.PaymentSettings{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpsert_Validation(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PaymentSettings{}))
	s := &Service{DB: db}

	_, err = s.Upsert(context.Background(), uuid.New(), SettingsInput{PayPalEmail: "nope"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Upsert(context.Background(), uuid.New(), SettingsInput{VenmoQR: "ftp://x/qr.png"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// failReads makes every read of model fail with a dropped connection and counts the attempts.
func failReads(t *testing.T, db *gorm.DB, model string) *int {
	attempts := 0
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail_"+model, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == model {
			attempts++
			_ = tx.AddError(driver.ErrBadConn)
		}
	}))
	return &attempts
}

func TestGetForSeller_StorageUnavailable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PaymentSettings{}))
	s := &Service{DB: db}
	attempts := failReads(t, db, "PaymentSettings")

	settings, err := s.GetForSeller(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Nil(t, settings)
	assert.Equal(t, 2, *attempts)
}
