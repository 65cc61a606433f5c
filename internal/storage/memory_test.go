package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestMemoryTableAssignsIDsAndCreatedAt(t *testing.T) {
	tbl := NewMemoryTable[SentimentRecord]()
	rows := []SentimentRecord{record("Palantir a", 0.1, testNow), record("Palantir b", 0.2, testNow)}

	n, err := tbl.Insert(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 1, rows[0].ID)
	assert.EqualValues(t, 2, rows[1].ID)
	assert.False(t, rows[0].CreatedAt.IsZero())
}

func TestMemoryTableFilters(t *testing.T) {
	ctx := context.Background()
	tbl := NewMemoryTable[SentimentRecord]()
	_, err := tbl.Insert(ctx, []SentimentRecord{
		record("Palantir a", 0.1, testNow.Add(-3*time.Hour)),
		record("Palantir b", 0.2, testNow.Add(-2*time.Hour)),
		record("Palantir c", 0.3, testNow.Add(-1*time.Hour)),
	})
	require.NoError(t, err)

	rows, err := tbl.Select(ctx, Where(Gte(ColScrapedAt, testNow.Add(-2*time.Hour))).Order(ColScrapedAt, true))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Palantir c", rows[0].Headline)

	rows, err = tbl.Select(ctx, Where(Eq(ColHeadline, "Palantir a")))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	n, err := tbl.Count(ctx, Where(Lte("sentiment_compound", 0.2)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = tbl.Count(ctx, Where(Gte(ColID, 2)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	deleted, err := tbl.Delete(ctx, Where(Lt(ColScrapedAt, testNow.Add(-150*time.Minute))))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.Len(t, tbl.Rows(), 2)
}

func TestMemoryTableRejectsBadQueries(t *testing.T) {
	ctx := context.Background()
	tbl := NewMemoryTable[DailySummary]()
	_, err := tbl.Insert(ctx, []DailySummary{summaryFor(testNow)})
	require.NoError(t, err)

	_, err = tbl.Delete(ctx, Filter{})
	assert.Error(t, err, "unconditional delete is refused")

	_, err = tbl.Select(ctx, Where(Eq("no_such_column", 1)))
	assert.Error(t, err)

	_, err = tbl.Select(ctx, Where(Cond{Column: ColDate, Op: "LIKE", Value: "2024%"}))
	assert.Error(t, err)

	_, err = tbl.Select(ctx, Where(Eq(ColDate, "2024-05-06")))
	assert.Error(t, err, "date column only compares with dates or times")

	n, err := tbl.Count(ctx, Where(Eq(ColDate, datatypes.Date(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
