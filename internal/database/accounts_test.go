package database

import (
	"testing"
	"time"

	"kylas-whatsapp-bridge/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LinkedAccount{}, &models.TemplateSet{}))
	return db
}

func TestAccountUpsertUpdatesInPlace(t *testing.T) {
	store := NewAccountStore(testDB(t))

	require.NoError(t, store.Upsert(&models.LinkedAccount{
		KylasUserID: "42", Email: "old@example.com", AccessToken: "old-token",
	}))
	require.NoError(t, store.Upsert(&models.LinkedAccount{
		KylasUserID: "42", Email: "new@example.com", AccessToken: "new-token", ProjectID: "p1",
	}))

	acc, err := store.FindByUserID("42")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", acc.Email)
	require.Equal(t, "new-token", acc.AccessToken)
	require.Equal(t, "p1", acc.ProjectID)

	var count int64
	require.NoError(t, store.db.Model(&models.LinkedAccount{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAccountFindByProjectID(t *testing.T) {
	store := NewAccountStore(testDB(t))

	require.NoError(t, store.Upsert(&models.LinkedAccount{KylasUserID: "42", ProjectID: "p1"}))
	require.NoError(t, store.Upsert(&models.LinkedAccount{KylasUserID: "43", ProjectID: "p2"}))

	acc, err := store.FindByProjectID("p2")
	require.NoError(t, err)
	require.Equal(t, "43", acc.KylasUserID)

	_, err = store.FindByProjectID("nope")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountSavePersistsTokenRotation(t *testing.T) {
	store := NewAccountStore(testDB(t))

	acc := &models.LinkedAccount{KylasUserID: "42", RefreshToken: "r1"}
	require.NoError(t, store.Upsert(acc))

	acc.AccessToken = "a2"
	acc.RefreshToken = "r2"
	acc.AccessTokenExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, store.Save(acc))

	got, err := store.FindByUserID("42")
	require.NoError(t, err)
	require.Equal(t, "a2", got.AccessToken)
	require.Equal(t, "r2", got.RefreshToken)
	require.True(t, got.AccessTokenExpiresAt.After(time.Now()))
}

func TestTemplateStoreMissingIsNil(t *testing.T) {
	store := NewTemplateStore(testDB(t))

	set, err := store.FindByUserID("42")
	require.NoError(t, err)
	require.Nil(t, set)

	require.NoError(t, store.Save(&models.TemplateSet{KylasUserID: "42", Templates: `[]`}))
	set, err = store.FindByUserID("42")
	require.NoError(t, err)
	require.Equal(t, `[]`, set.Templates)
}
