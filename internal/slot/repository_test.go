package slot

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open db")
	t.Cleanup(func() {
		require.NoError(t, d.Close())
	})
	return d
}

func testProperty(t *testing.T, d *sql.DB) int64 {
	t.Helper()
	_, err := d.Exec(`INSERT OR IGNORE INTO users (id, email, role) VALUES ('owner-1', 'owner@example.com', 'owner')`)
	require.NoError(t, err)
	res, err := d.Exec(`INSERT INTO properties (title, address, owner_id) VALUES ('Studio', '3 rue Oberkampf', 'owner-1')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seed(t *testing.T, repo *Repository, propertyID int64, drafts ...Draft) []*VisitSlot {
	t.Helper()
	valid, err := Validate(drafts)
	require.NoError(t, err)
	slots, err := repo.Insert(context.Background(), propertyID, valid)
	require.NoError(t, err)
	return slots
}

func TestRepositoryInsertAndList(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	seed(t, repo, pid,
		Draft{Date: "2025-01-11", StartTime: "10:00", EndTime: "10:30", MaxCapacity: 1, IsAvailable: true},
		Draft{Date: "2025-01-10", StartTime: "14:00", EndTime: "14:30", MaxCapacity: 4, IsGroupVisit: true, IsAvailable: true, Notes: "digicode 1234"},
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 1, IsAvailable: true},
	)

	slots, err := repo.ListByProperty(ctx, pid)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "14:00", slots[1].StartTime)
	assert.Equal(t, "2025-01-11", slots[2].Date)

	group := slots[1]
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, pid, group.PropertyID)
	assert.Equal(t, 4, group.MaxCapacity)
	assert.Equal(t, 0, group.CurrentBookings)
	assert.True(t, group.IsGroupVisit)
	assert.True(t, group.IsAvailable)
	assert.Equal(t, "digicode 1234", group.Notes)
	assert.False(t, group.CreatedAt.IsZero())

	byIDs, err := repo.ListByIDs(ctx, []string{slots[2].ID, slots[0].ID, "missing"})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, slots[0].ID, byIDs[0].ID)

	empty, err := repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo := NewRepository(testDB(t))
	_, err := repo.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryReplace(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 1, IsAvailable: true},
		Draft{Date: "2025-01-10", StartTime: "10:00", EndTime: "10:30", MaxCapacity: 1, IsAvailable: true},
	)

	edited := DraftOf(slots[0])
	edited.MaxCapacity = 3
	edited.Notes = "bring ID"

	got, err := repo.Replace(ctx, pid, []Draft{
		edited,
		{Date: "2025-01-12", StartTime: "18:00", EndTime: "18:30", MaxCapacity: 2, IsAvailable: true},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, slots[0].ID, got[0].ID)
	assert.Equal(t, 3, got[0].MaxCapacity)
	assert.Equal(t, "bring ID", got[0].Notes)
	assert.Equal(t, "2025-01-12", got[1].Date)

	_, err = repo.Get(ctx, slots[1].ID)
	assert.True(t, errors.Is(err, ErrNotFound), "slot missing from the list is deleted")
}

func TestRepositoryReplaceRefusesBookedDeletion(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 2, IsAvailable: true},
	)
	require.NoError(t, repo.Book(ctx, slots[0].ID))

	err := db.InTx(ctx, d, func(tx *sql.Tx) error {
		_, err := NewRepository(tx).Replace(ctx, pid, nil)
		return err
	})
	assert.True(t, errors.Is(err, ErrHasBookings))

	kept, err := repo.Get(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, kept.CurrentBookings)
}

func TestRepositoryReplaceErrors(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	other := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	mine := seed(t, repo, pid, Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 2, IsAvailable: true})
	theirs := seed(t, repo, other, Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 1, IsAvailable: true})

	_, err := repo.Replace(ctx, pid, []Draft{DraftOf(theirs[0])})
	assert.True(t, errors.Is(err, ErrNotFound), "another property's slot id")

	require.NoError(t, repo.Book(ctx, mine[0].ID))
	require.NoError(t, repo.Book(ctx, mine[0].ID))
	shrunk := DraftOf(mine[0])
	shrunk.MaxCapacity = 1
	_, err = repo.Replace(ctx, pid, []Draft{shrunk})
	assert.True(t, errors.Is(err, ErrCapacityBelowBookings))
}

func TestRepositoryUpdate(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 2, IsAvailable: true},
		Draft{Date: "2025-01-10", StartTime: "10:00", EndTime: "10:30", MaxCapacity: 1, IsAvailable: true},
	)
	id := slots[0].ID

	start, capacity, avail := "9:15", 5, false
	got, err := repo.Update(ctx, id, Patch{StartTime: &start, MaxCapacity: &capacity, IsAvailable: &avail})
	require.NoError(t, err)
	assert.Equal(t, "09:15", got.StartTime)
	assert.Equal(t, "09:30", got.EndTime)
	assert.Equal(t, 5, got.MaxCapacity)
	assert.False(t, got.IsAvailable)

	end := "10:15"
	_, err = repo.Update(ctx, id, Patch{EndTime: &end})
	assert.True(t, errors.Is(err, ErrInvalid), "overlaps the 10:00 slot")

	avail = true
	_, err = repo.Update(ctx, id, Patch{IsAvailable: &avail})
	require.NoError(t, err)
	require.NoError(t, repo.Book(ctx, id))
	require.NoError(t, repo.Book(ctx, id))
	one := 1
	_, err = repo.Update(ctx, id, Patch{MaxCapacity: &one})
	assert.True(t, errors.Is(err, ErrCapacityBelowBookings))

	_, err = repo.Update(ctx, "missing", Patch{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryBookedSlotKeepsItsTime(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 2, IsAvailable: true},
	)
	id := slots[0].ID
	require.NoError(t, repo.Book(ctx, id))

	later := "10:00"
	_, err := repo.Update(ctx, id, Patch{StartTime: &later, EndTime: &later})
	assert.True(t, errors.Is(err, ErrInvalid), "validation runs first")

	end := "10:30"
	_, err = repo.Update(ctx, id, Patch{StartTime: &later, EndTime: &end})
	assert.True(t, errors.Is(err, ErrBookedSlotMoved))

	moved := DraftOf(slots[0])
	moved.Date = "2025-01-11"
	_, err = repo.Replace(ctx, pid, []Draft{moved})
	assert.True(t, errors.Is(err, ErrBookedSlotMoved))

	notes, capacity := "Ring twice", 3
	got, err := repo.Update(ctx, id, Patch{Notes: &notes, MaxCapacity: &capacity})
	require.NoError(t, err, "other fields stay editable")
	assert.Equal(t, "Ring twice", got.Notes)
	assert.Equal(t, "2025-01-10", got.Date)
	assert.Equal(t, "09:00", got.StartTime)

	require.NoError(t, repo.Release(ctx, id))
	got, err = repo.Update(ctx, id, Patch{StartTime: &later, EndTime: &end})
	require.NoError(t, err, "free slot can move")
	assert.Equal(t, "10:00", got.StartTime)
}

func TestRepositoryWriteGuardsBookedRow(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 2, IsAvailable: true},
	)
	require.NoError(t, repo.Book(ctx, slots[0].ID))

	// A draft read before the booking landed.
	stale := DraftOf(slots[0])
	stale.StartTime, stale.EndTime = "11:00", "11:30"
	assert.True(t, errors.Is(repo.write(ctx, stale), ErrBookedSlotMoved))

	kept, err := repo.Get(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00", kept.StartTime)
}

func TestRepositoryDelete(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 1, IsAvailable: true},
		Draft{Date: "2025-01-10", StartTime: "10:00", EndTime: "10:30", MaxCapacity: 1, IsAvailable: true},
	)

	require.NoError(t, repo.Delete(ctx, slots[0].ID))
	_, err := repo.Get(ctx, slots[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.Book(ctx, slots[1].ID))
	assert.True(t, errors.Is(repo.Delete(ctx, slots[1].ID), ErrHasBookings))
	assert.True(t, errors.Is(repo.Delete(ctx, "missing"), ErrNotFound))
}

func TestRepositoryBookAndRelease(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 1, IsAvailable: true},
		Draft{Date: "2025-01-10", StartTime: "10:00", EndTime: "10:30", MaxCapacity: 1, IsAvailable: false},
	)
	open, closed := slots[0].ID, slots[1].ID

	require.NoError(t, repo.Book(ctx, open))
	assert.True(t, errors.Is(repo.Book(ctx, open), ErrFull))
	assert.True(t, errors.Is(repo.Book(ctx, closed), ErrUnavailable))
	assert.True(t, errors.Is(repo.Book(ctx, "missing"), ErrNotFound))

	require.NoError(t, repo.Release(ctx, open))
	s, err := repo.Get(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, 0, s.CurrentBookings)

	assert.True(t, errors.Is(repo.Release(ctx, open), ErrNoBookings), "nothing left to release")
	assert.True(t, errors.Is(repo.Release(ctx, "missing"), ErrNotFound))
}

func TestRepositoryConcurrentBookingsNeverOverfill(t *testing.T) {
	d := testDB(t)
	pid := testProperty(t, d)
	repo := NewRepository(d)
	ctx := context.Background()

	slots := seed(t, repo, pid,
		Draft{Date: "2025-01-10", StartTime: "09:00", EndTime: "09:30", MaxCapacity: 3, IsGroupVisit: true, IsAvailable: true},
	)
	id := slots[0].ID

	const attempts = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	booked, full := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Book(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, ErrFull):
				full++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, booked)
	assert.Equal(t, attempts-3, full)

	s, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, s.CurrentBookings)
}

func TestRepositoryBookExecFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = mockDB.Close() }()

	mock.ExpectExec("UPDATE visit_slots").
		WithArgs("slot-1").
		WillReturnError(errors.New("disk I/O error"))

	err = NewRepository(mockDB).Book(context.Background(), "slot-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking visit slot slot-1")
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListQueryFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = mockDB.Close() }()

	mock.ExpectQuery("SELECT (.+) FROM visit_slots WHERE property_id").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrConnDone)

	_, err = NewRepository(mockDB).ListByProperty(context.Background(), 7)
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.NoError(t, mock.ExpectationsWereMet())
}
