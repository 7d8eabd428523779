package modeler

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/breaker"
	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	q    string
	args map[string]any
}

type result struct {
	id       int64
	affected int64
}

func (r result) LastInsertId() (int64, error) { return r.id, nil }
func (r result) RowsAffected() (int64, error) { return r.affected, nil }

// recorder an Executor answering queued rows and results.
type recorder struct {
	calls   []call
	rows    [][]map[string]any
	results []sql.Result
	err     error
}

func (r *recorder) QueryMaps(_ context.Context, q string, args map[string]any) ([]map[string]any, error) {
	r.calls = append(r.calls, call{q, args})
	if r.err != nil {
		return nil, r.err
	}
	if len(r.rows) == 0 {
		return nil, nil
	}
	rows := r.rows[0]
	r.rows = r.rows[1:]
	return rows, nil
}

func (r *recorder) Execute(_ context.Context, q string, args map[string]any) (sql.Result, error) {
	r.calls = append(r.calls, call{q, args})
	if r.err != nil {
		return nil, r.err
	}
	if len(r.results) == 0 {
		return result{affected: 1}, nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res, nil
}

func (r *recorder) Close(context.Context) error { return nil }

func (r *recorder) last() call {
	return r.calls[len(r.calls)-1]
}

func users(t *testing.T) *bitfield.Descriptor {
	t.Helper()
	d := bitfield.NewDescriptor("User", "users")
	require.NoError(t, d.DeclareNames("bits", []string{"seller", "insane", "stupid"}))
	require.NoError(t, d.DeclareNames("more_bits", []string{"one", "two"}, bitfield.WithQueryMode(bitfield.InList), bitfield.WithScopes(false)))
	return d
}

func TestConfigurer(t *testing.T) {
	c := MakeConfigurer(ConfigurerSoftRemoved, ConfigurerVersion)
	assert.True(t, c.IsSoftRemoved())
	assert.True(t, c.IsVersioned())
	assert.False(t, c.IsModified())
	c = c.With(ConfigurerVersion, false).With(ConfigurerModified, true)
	assert.Equal(t, ConfigurerSoftRemoved|ConfigurerModified, c)
	assert.Equal(t, ConfigurerAll, MakeConfigurer(ConfigurerModified, ConfigurerSoftRemoved, ConfigurerVersion))
}

func TestSQLMaker(t *testing.T) {
	plain := NewSQLMaker("users", ConfigurerNone)
	assert.Equal(t, "SELECT id, bits FROM users", plain.Select([]string{"id", "bits"}, ""))
	assert.Equal(t, "SELECT COUNT(*) FROM users WHERE (users.bits & 1) = 1", plain.Count("(users.bits & 1) = 1"))
	assert.Equal(t, "UPDATE users SET bits = (bits | 1) - 0", plain.UpdateAll("bits = (bits | 1) - 0", ""))
	assert.Equal(t, "INSERT INTO users (bits, more_bits) VALUES (:bits, :more_bits)", plain.Insert([]string{"bits", "more_bits"}))
	assert.Equal(t, "UPDATE users SET bits = :bits WHERE id = :id", plain.UpdateColumns([]string{"bits"}))
	assert.Equal(t, []string{"id"}, plain.Columns())

	full := NewSQLMaker("users", ConfigurerAll)
	assert.Equal(t, "SELECT id FROM users WHERE users.removed = false", full.Select([]string{"id"}, ""))
	assert.Equal(t, "SELECT id FROM users WHERE id = :id AND users.removed = false", full.ById([]string{"id"}))
	assert.Equal(t,
		"UPDATE users SET bits = (bits | 1) - 0, modified_at = CURRENT_TIMESTAMP, version = version + 1 WHERE (users.bits & 2) = 2 AND users.removed = false",
		full.UpdateAll("bits = (bits | 1) - 0", "(users.bits & 2) = 2"))
	assert.Equal(t,
		"UPDATE users SET bits = :bits, more_bits = :more_bits, modified_at = CURRENT_TIMESTAMP, version = version + 1 WHERE id = :id AND version = :version AND users.removed = false",
		full.UpdateColumns([]string{"bits", "more_bits"}))
	assert.Equal(t, []string{"id", "version"}, full.Columns())

	renamed := plain.WithFields(FieldNames{Id: "uid"})
	assert.Equal(t, "UPDATE users SET bits = :bits WHERE uid = :uid", renamed.UpdateColumns([]string{"bits"}))
	renamed = full.WithFields(FieldNamesOf(conf.Parse(`id: uid, version: revision`)))
	assert.Equal(t, FieldNames{Id: "uid", ModifiedAt: "modified_at", Removed: "removed", Version: "revision"}, renamed.Fields())
	assert.Equal(t, []string{"uid", "revision"}, renamed.Columns())
	assert.Panics(t, func() { plain.UpdateAll("", "") })
	assert.Panics(t, func() { plain.Insert(nil) })
}

func TestRepositoryCountAndFind(t *testing.T) {
	ex := &recorder{rows: [][]map[string]any{
		{{"COUNT(*)": int64(2)}},
		{
			{"id": int64(1), "bits": []byte("1"), "more_bits": int64(0)},
			{"id": int64(2), "bits": int64(3), "more_bits": nil},
		},
	}}
	repo := NewRepository(users(t), ex, ConfigurerNone)
	ctx := context.Background()

	n, err := repo.Count(ctx, map[string]bool{"seller": true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "SELECT COUNT(*) FROM users WHERE (users.bits & 1) = 1", ex.last().q)

	found, err := repo.Find(ctx, map[string]bool{"seller": true, "two": false})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, bits, more_bits FROM users WHERE (users.bits & 1) = 1 AND users.more_bits IN (0,1)", ex.last().q)
	require.Len(t, found, 2)
	assert.Equal(t, int64(1), found[0].Id())
	assert.Equal(t, map[string]bool{"seller": true, "insane": false, "stupid": false, "one": false, "two": false}, found[0].Flags().Values())
	insane, err := found[1].Flags().Flag("insane")
	require.NoError(t, err)
	assert.True(t, insane)

	_, err = repo.Find(ctx, map[string]bool{"seller": true}, bitfield.BitOperatorOr)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, bits, more_bits FROM users WHERE (users.bits & 1) <> 0", ex.last().q)

	calls := len(ex.calls)
	_, err = repo.Count(ctx, map[string]bool{"ghost": true})
	assert.ErrorIs(t, err, bitfield.ErrUnknownFlag)
	assert.Len(t, ex.calls, calls)
}

func TestRepositoryFindScope(t *testing.T) {
	ex := &recorder{}
	repo := NewRepository(users(t), ex, ConfigurerSoftRemoved)
	_, err := repo.FindScope(context.Background(), "not_insane")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, bits, more_bits FROM users WHERE (users.bits & 2) = 0 AND users.removed = false", ex.last().q)

	_, err = repo.FindScope(context.Background(), "one")
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestRepositoryUpdateAll(t *testing.T) {
	ex := &recorder{results: []sql.Result{result{affected: 7}}}
	repo := NewRepository(users(t), ex, ConfigurerNone)
	n, err := repo.UpdateAll(context.Background(), map[string]bool{"seller": false, "one": true}, map[string]bool{"insane": true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "UPDATE users SET bits = (bits | 1) - 1, more_bits = (more_bits | 1) - 0 WHERE (users.bits & 2) = 2", ex.last().q)

	calls := len(ex.calls)
	n, err = repo.UpdateAll(context.Background(), nil, map[string]bool{"insane": true})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, ex.calls, calls)
}

func TestRepositoryLoadSave(t *testing.T) {
	ex := &recorder{rows: [][]map[string]any{
		{{"id": int64(9), "version": int64(4), "bits": int64(1), "more_bits": int64(2)}},
	}}
	repo := NewRepository(users(t), ex, ConfigurerVersion)
	ctx := context.Background()
	e, err := repo.Load(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, version, bits, more_bits FROM users WHERE id = :id", ex.last().q)
	assert.Equal(t, map[string]any{"id": int64(9)}, ex.last().args)
	assert.Equal(t, int64(4), e.Version())

	saved, err := e.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)

	r := e.Flags()
	require.NoError(t, r.SetFlag("seller", false))
	require.NoError(t, r.SetFlag("insane", "true"))
	assert.True(t, e.IsModified())
	changes := r.Changes()
	assert.Equal(t, map[string]bitfield.Change{
		"seller": {Old: true, New: false},
		"insane": {Old: false, New: true},
	}, changes)

	saved, err = e.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "UPDATE users SET bits = :bits, version = version + 1 WHERE id = :id AND version = :version", ex.last().q)
	assert.Equal(t, map[string]any{"bits": int64(2), "id": int64(9), "version": int64(4)}, ex.last().args)
	assert.False(t, e.IsModified())
	assert.Equal(t, int64(5), e.Version())
	assert.Empty(t, r.Changes())

	require.NoError(t, r.SetFlag("stupid", true))
	ex.results = []sql.Result{result{affected: 0}}
	saved, err = e.Save(ctx)
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, saved)
	assert.True(t, e.IsModified())

	_, err = repo.Load(ctx, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityUnchangedWritesAreNotModifications(t *testing.T) {
	ex := &recorder{rows: [][]map[string]any{
		{{"id": int64(9), "version": int64(4), "bits": int64(1), "more_bits": int64(2)}},
	}}
	repo := NewRepository(users(t), ex, ConfigurerVersion)
	ctx := context.Background()
	e, err := repo.Load(ctx, 9)
	require.NoError(t, err)
	calls := len(ex.calls)

	r := e.Flags()
	require.NoError(t, r.SetFlag("seller", true))
	assert.False(t, e.IsModified())

	require.NoError(t, r.SetFlag("insane", true))
	assert.True(t, e.IsModified())
	require.NoError(t, r.SetFlag("insane", false))
	assert.False(t, e.IsModified())
	assert.Empty(t, r.Changes())

	saved, err := e.Save(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Len(t, ex.calls, calls)
	assert.Equal(t, int64(4), e.Version())
}

func TestRepositoryCreate(t *testing.T) {
	ex := &recorder{results: []sql.Result{result{id: 3, affected: 1}}}
	repo := NewRepository(users(t), ex, ConfigurerNone)
	e, err := repo.Create(context.Background(), map[string]bool{"insane": true, "two": true, "seller": false})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (bits, more_bits) VALUES (:bits, :more_bits)", ex.last().q)
	assert.Equal(t, map[string]any{"bits": int64(2), "more_bits": int64(2)}, ex.last().args)
	assert.Equal(t, int64(3), e.Id())
	assert.False(t, e.IsModified())
	two, err := e.Flags().Flag("two")
	require.NoError(t, err)
	assert.True(t, two)
}

func TestGuardedExecutor(t *testing.T) {
	boom := errors.New("down")
	ex := &recorder{err: boom}
	g := GuardedExecutor{Executor: ex, Breaker: breaker.New(func(c *breaker.Configure) {
		c.ReadyToTrip = breaker.Counts(1)
	})}
	ctx := context.Background()
	_, err := g.QueryMaps(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, boom)
	_, err = g.Execute(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, boom)
	_, err = g.QueryMaps(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, breaker.ErrOpenState)
	assert.Len(t, ex.calls, 2)

	repo := NewRepository(users(t), g, ConfigurerNone)
	_, err = repo.Count(ctx, map[string]bool{"seller": true})
	assert.ErrorIs(t, err, breaker.ErrOpenState)
}

func TestToInt64(t *testing.T) {
	for v, want := range map[any]int64{int64(5): 5, int32(6): 6, "7": 7, uint64(8): 8} {
		got, err := toInt64(v)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := toInt64([]byte("12"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)
	_, err = toInt64(1.5)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}
