package spreadsheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"github.com/stretchr/testify/require"
)

// fakeSheet keeps one range of cells in memory.
type fakeSheet struct {
	rows    [][]string
	cleared int
	getErr  error
}

func (f *fakeSheet) Get(ctx context.Context, rng string) ([][]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rows, nil
}

func (f *fakeSheet) Update(ctx context.Context, rng string, rows [][]string) error {
	f.rows = rows
	return nil
}

func (f *fakeSheet) Clear(ctx context.Context, rng string) error {
	f.rows = nil
	f.cleared++
	return nil
}

type fixture struct {
	sheet   *fakeSheet
	tasks   *store.TaskStore
	users   *store.UserStore
	adapter *Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tasks, err := store.NewTaskStore(db, nil)
	require.NoError(t, err)
	users, err := store.NewUserStore(db, nil)
	require.NoError(t, err)

	sheet := &fakeSheet{}
	a := New(sheet, tasks, users, "Tasks!A1:I", nil)
	a.now = func() time.Time { return time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC) }
	return &fixture{sheet: sheet, tasks: tasks, users: users, adapter: a}
}

func TestExportWritesHeaderAndRows(t *testing.T) {
	f := newFixture(t)
	ada, err := f.users.Add(store.UserDraft{Name: "Ada", Email: "ada@example.com", Role: "developer"})
	require.NoError(t, err)
	due := model.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err = f.tasks.Create(store.TaskDraft{Title: "Ship", Description: "v1", Status: model.StatusInProgress,
		Priority: model.PriorityHigh, Assignee: model.IntPtr(ada.ID), DueDate: &due})
	require.NoError(t, err)
	_, err = f.tasks.Create(store.TaskDraft{Title: "Plan"})
	require.NoError(t, err)

	f.sheet.rows = [][]string{{"stale"}}
	require.NoError(t, f.adapter.Export(context.Background(), f.tasks.List()))
	require.Equal(t, 1, f.sheet.cleared)

	require.Len(t, f.sheet.rows, 3)
	require.Equal(t, Header, f.sheet.rows[0])
	require.Equal(t, []string{"1", "Ship", "v1", "in-progress", "high", "Ada", "2024-03-01"}, f.sheet.rows[1][:7])
	require.Equal(t, []string{"2", "Plan", "", "backlog", "medium", "", ""}, f.sheet.rows[2][:7])
	require.NotEmpty(t, f.sheet.rows[1][colCreated])
}

func TestImportParsesRowsAndRenumbers(t *testing.T) {
	f := newFixture(t)
	ada, err := f.users.Add(store.UserDraft{Name: "Ada", Email: "ada@example.com", Role: "developer"})
	require.NoError(t, err)
	_, err = f.tasks.Create(store.TaskDraft{Title: "replaced"})
	require.NoError(t, err)

	f.sheet.rows = [][]string{
		Header,
		{"10", "Ship", "v1", "In Progress", "HIGH", "ada@example.com", "2024-03-01", "2024-01-01T10:00:00Z", "2024-01-02T10:00:00Z"},
		{"11", "  ", "no title"},
		{"12", "Odd", "", "someday", "urgent", "Nobody", "not a date"},
		{"", "Short"},
	}

	got, err := f.adapter.Import(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	ship := got[0]
	require.Equal(t, 1, ship.ID)
	require.Equal(t, model.StatusInProgress, ship.Status)
	require.Equal(t, model.PriorityHigh, ship.Priority)
	require.Equal(t, ada.ID, *ship.Assignee)
	require.Equal(t, "2024-03-01", ship.DueDate.String())
	require.True(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).Equal(ship.CreatedAt))

	odd := got[1]
	require.Equal(t, 2, odd.ID)
	require.Equal(t, model.StatusBacklog, odd.Status)
	require.Equal(t, model.PriorityMedium, odd.Priority)
	require.Nil(t, odd.Assignee)
	require.Nil(t, odd.DueDate)
	require.True(t, f.adapter.now().Equal(odd.CreatedAt))

	require.Equal(t, 3, got[2].ID)
	require.Equal(t, "Short", got[2].Title)

	stored := f.tasks.List()
	require.Len(t, stored, 3)
	require.Equal(t, "Ship", stored[0].Title)
	require.Equal(t, 4, f.tasks.NextID())
}

func TestExportImportRoundTrip(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Add(store.UserDraft{Name: "Ada", Email: "ada@example.com", Role: "developer"})
	require.NoError(t, err)
	due := model.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	for _, d := range []store.TaskDraft{
		{Title: "a", Status: model.StatusDone, Priority: model.PriorityLow, DueDate: &due},
		{Title: "b", Description: "multi\nline", Assignee: model.IntPtr(1)},
	} {
		_, err := f.tasks.Create(d)
		require.NoError(t, err)
	}
	before := f.tasks.List()

	require.NoError(t, f.adapter.Export(context.Background(), before))
	after, err := f.adapter.Import(context.Background())
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].Title, after[i].Title)
		require.Equal(t, before[i].Description, after[i].Description)
		require.Equal(t, before[i].Status, after[i].Status)
		require.Equal(t, before[i].Priority, after[i].Priority)
		require.Equal(t, before[i].Assignee, after[i].Assignee)
		require.Equal(t, before[i].DueDate, after[i].DueDate)
	}
}

func TestImportFailureLeavesStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.tasks.Create(store.TaskDraft{Title: "keep"})
	require.NoError(t, err)
	f.sheet.getErr = errors.New("quota exceeded")

	_, err = f.adapter.Import(context.Background())
	require.Error(t, err)
	require.Len(t, f.tasks.List(), 1)
}
