package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/eatsmarty/internal/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDocumentRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.LoadDocument(ctx, "eatsmarty-products")
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, db.SaveDocument(ctx, "eatsmarty-products", []byte(`{"v":1}`)))
	require.NoError(t, db.SaveDocument(ctx, "eatsmarty-products", []byte(`{"v":2}`)))

	body, err := db.LoadDocument(ctx, "eatsmarty-products")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(body))
}

func TestDocumentsAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveDocument(ctx, "a", []byte("1")))
	require.NoError(t, db.SaveDocument(ctx, "b", []byte("2")))

	a, err := db.LoadDocument(ctx, "a")
	require.NoError(t, err)
	b, err := db.LoadDocument(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "1", string(a))
	assert.Equal(t, "2", string(b))
}

func TestScanLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, code := range []string{"111", "222", "333"} {
		rec := &models.ScanRecord{
			ID:        code,
			Barcode:   code,
			Status:    models.ScanSucceeded,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.SaveScan(ctx, rec))
		assert.Equal(t, "camera", rec.Source)
	}

	require.NoError(t, db.UpdateScanStatus(ctx, "222", "", models.ScanNotFound, "Product not found in database"))

	recent, err := db.GetRecentScans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "333", recent[0].Barcode)
	assert.Equal(t, "222", recent[1].Barcode)
	assert.Equal(t, models.ScanNotFound, recent[1].Status)
	assert.Equal(t, "Product not found in database", recent[1].Error)
	assert.True(t, recent[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestUpdateScanStatusFillsBarcode(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveScan(ctx, &models.ScanRecord{ID: "s1", Source: "session", Status: models.ScanPending}))
	require.NoError(t, db.UpdateScanStatus(ctx, "s1", "4006381333931", models.ScanSucceeded, ""))

	recent, err := db.GetRecentScans(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "4006381333931", recent[0].Barcode)
	assert.Equal(t, models.ScanSucceeded, recent[0].Status)
	assert.Equal(t, "session", recent[0].Source)
}

func TestUpdateScanStatusUnknownID(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateScanStatus(context.Background(), "missing", "", models.ScanFailed, "x")
	assert.Error(t, err)
}

func TestSaveDocumentError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("eatsmarty-settings", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	db := NewWithDB(sqlDB)
	err = db.SaveDocument(context.Background(), "eatsmarty-settings", []byte("{}"))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDocumentQueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT body FROM documents").
		WithArgs("k").
		WillReturnError(errors.New("locked"))

	db := NewWithDB(sqlDB)
	_, err = db.LoadDocument(context.Background(), "k")
	assert.ErrorContains(t, err, "locked")
	assert.False(t, errors.Is(err, ErrNoDocument))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecentScansQueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT id, barcode").
		WithArgs(20).
		WillReturnError(errors.New("boom"))

	db := NewWithDB(sqlDB)
	_, err = db.GetRecentScans(context.Background(), 20)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
