package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"burnoutwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *Store, userID string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         "Alice Smith",
		DOB:          "1990-01-01",
		Mobile:       "9876543210",
		Profession:   "Engineer",
		UserID:       userID,
		PasswordHash: "$argon2id$placeholder",
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	first, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.UserIDExists(ctx, "alice_1234")
	require.NoError(t, err)
	assert.False(t, exists)

	u := createUser(t, store, "alice_1234")
	assert.NotZero(t, u.ID)

	exists, err = store.UserIDExists(ctx, "alice_1234")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.GetUserByUserID(ctx, "alice_1234")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = store.GetUserByUserID(ctx, "nobody_0000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newTestStore(t)
	createUser(t, store, "bob_1111")

	err := store.CreateUser(context.Background(), &models.User{
		Name: "Bob", DOB: "x", Mobile: "1234567890", Profession: "y",
		UserID: "bob_1111", PasswordHash: "z",
	})
	require.ErrorIs(t, err, ErrDuplicateUserID)
}

func TestInsertDailyEntryRequiresUser(t *testing.T) {
	store := newTestStore(t)
	err := store.InsertDailyEntry(context.Background(), &models.DailyEntry{
		UserID: "ghost_0001", LogDate: "2024-01-01", BurnoutLevel: models.BurnoutLow,
	})
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestRecentDailyEntriesNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "carol_2222")
	createUser(t, store, "dave_3333")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		e := &models.DailyEntry{
			UserID:       "carol_2222",
			LogDate:      start.AddDate(0, 0, i).Format(models.LogDateLayout),
			WorkHours:    float64(i),
			Meetings:     i,
			BurnoutLevel: models.BurnoutMedium,
		}
		require.NoError(t, store.InsertDailyEntry(ctx, e))
		assert.NotZero(t, e.ID)
	}
	require.NoError(t, store.InsertDailyEntry(ctx, &models.DailyEntry{
		UserID: "dave_3333", LogDate: "2030-01-01", BurnoutLevel: models.BurnoutHigh,
	}))

	entries, err := store.RecentDailyEntries(ctx, "carol_2222", HistoryLimit)
	require.NoError(t, err)
	require.Len(t, entries, 30)
	assert.Equal(t, "2024-02-04", entries[0].LogDate)
	assert.Equal(t, "2024-01-06", entries[29].LogDate)
	for _, e := range entries {
		assert.Equal(t, "carol_2222", e.UserID)
	}

	n, err := store.CountDailyEntries(ctx, "carol_2222")
	require.NoError(t, err)
	assert.Equal(t, 35, n)
}

func TestRecentDailyEntriesSameDayOrderedByInsertion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "erin_4444")

	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertDailyEntry(ctx, &models.DailyEntry{
			UserID: "erin_4444", LogDate: "2024-05-05", Breaks: i, BurnoutLevel: models.BurnoutLow,
		}))
	}
	entries, err := store.RecentDailyEntries(ctx, "erin_4444", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{entries[0].Breaks, entries[1].Breaks, entries[2].Breaks})
}

func TestRecentDailyEntriesEmpty(t *testing.T) {
	store := newTestStore(t)
	entries, err := store.RecentDailyEntries(context.Background(), "nobody", HistoryLimit)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestTrainingRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LatestTrainingRun(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordTrainingRun(ctx, &models.TrainingRun{
			ModelPath:    fmt.Sprintf("model-%d.json", i),
			Accuracy:     0.8 + float64(i)/100,
			TrainSamples: 800,
			TestSamples:  200,
			TrainedAt:    base.Add(time.Duration(i) * time.Hour),
		}))
	}

	run, err := store.LatestTrainingRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "model-2.json", run.ModelPath)
	assert.InDelta(t, 0.82, run.Accuracy, 1e-9)
	assert.True(t, run.TrainedAt.Equal(base.Add(2*time.Hour)))
}

func TestNilStore(t *testing.T) {
	var store *Store
	_, err := store.UserIDExists(context.Background(), "x")
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, store.Close())
}
