package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var carriers = Upsert{
	Table:   "carriers",
	Columns: []string{"mc_mx", "legal_name", "email"},
	Key:     "mc_mx",
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, carriers, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkUpsert_Validation(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, Upsert{Table: "carriers", Key: "mc_mx"}, [][]any{{1}})
	assert.ErrorContains(t, err, "no columns")

	_, err = BulkUpsert(context.Background(), nil, Upsert{Table: "carriers", Columns: []string{"a"}}, [][]any{{1}})
	assert.ErrorContains(t, err, "no key column")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_carriers" \(LIKE "carriers" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_carriers"}, carriers.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "carriers" .* ON CONFLICT \("mc_mx"\) DO UPDATE SET "legal_name" = EXCLUDED."legal_name", "email" = EXCLUDED."email"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{{1, "ACME", "a@acme.com"}, {2, "BETA", "N/A"}}
	n, err := BulkUpsert(context.Background(), mock, carriers, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_carriers"}, carriers.Columns).
		WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, carriers, [][]any{{1, "ACME", "a@acme.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into staging for carriers")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL_KeyOnly(t *testing.T) {
	sql := upsertSQL(`"t"`, `"s"`, Upsert{Table: "t", Columns: []string{"id"}, Key: "id"})
	assert.Equal(t, `INSERT INTO "t" ("id") SELECT "id" FROM "s" ON CONFLICT ("id") DO NOTHING`, sql)
}
