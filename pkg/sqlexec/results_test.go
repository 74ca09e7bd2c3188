package sqlexec

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

func TestDicts(t *testing.T) {
	_, rn := setupTestDB(t)

	rows, err := mustQuery(t, rn, "SELECT id, name FROM users ORDER BY id", nil).Dicts()
	if err != nil {
		t.Fatalf("Dicts() error = %v", err)
	}

	want := []Row{
		{"id": int64(1), "name": "alice"},
		{"id": int64(2), "name": "bob"},
		{"id": int64(3), "name": "carol"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Dicts() = %v, want %v", rows, want)
	}
}

func TestDict(t *testing.T) {
	_, rn := setupTestDB(t)

	row, err := mustQuery(t, rn, "SELECT id, name FROM users ORDER BY id", nil).Dict()
	if err != nil {
		t.Fatalf("Dict() error = %v", err)
	}
	if row["name"] != "alice" {
		t.Errorf("Dict() = %v, want the first row", row)
	}
}

func TestDictNoRows(t *testing.T) {
	_, rn := setupTestDB(t)

	_, err := mustQuery(t, rn, "SELECT id FROM users WHERE id = 99", nil).Dict()
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Dict() error = %v, want sql.ErrNoRows", err)
	}
}

func TestScalars(t *testing.T) {
	_, rn := setupTestDB(t)

	values, err := mustQuery(t, rn, "SELECT name FROM users ORDER BY id", nil).Scalars()
	if err != nil {
		t.Fatalf("Scalars() error = %v", err)
	}
	if !reflect.DeepEqual(values, []any{"alice", "bob", "carol"}) {
		t.Errorf("Scalars() = %v", values)
	}
}

func TestScalar(t *testing.T) {
	_, rn := setupTestDB(t)

	value, err := mustQuery(t, rn, "SELECT COUNT(*) FROM users", nil).Scalar()
	if err != nil {
		t.Fatalf("Scalar() error = %v", err)
	}
	if value != int64(3) {
		t.Errorf("Scalar() = %v, want 3", value)
	}
}

func TestScalarNoRows(t *testing.T) {
	_, rn := setupTestDB(t)

	_, err := mustQuery(t, rn, "SELECT id FROM users WHERE id = 99", nil).Scalar()
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Scalar() error = %v, want sql.ErrNoRows", err)
	}
}

func TestScalarSet(t *testing.T) {
	_, rn := setupTestDB(t)

	set, err := mustQuery(t, rn, "SELECT score FROM users", nil).ScalarSet()
	if err != nil {
		t.Fatalf("ScalarSet() error = %v", err)
	}
	want := map[any]struct{}{9.5: {}, 7.0: {}}
	if !reflect.DeepEqual(set, want) {
		t.Errorf("ScalarSet() = %v, want %v", set, want)
	}
}

func TestPkMap(t *testing.T) {
	_, rn := setupTestDB(t)

	m, err := mustQuery(t, rn, "SELECT id, name, score FROM users", nil).PkMap()
	if err != nil {
		t.Fatalf("PkMap() error = %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("PkMap() has %d entries, want 3", len(m))
	}
	if m[int64(2)]["name"] != "bob" {
		t.Errorf("PkMap()[2] = %v", m[int64(2)])
	}
}

func TestPkMapLastRowWins(t *testing.T) {
	_, rn := setupTestDB(t)

	// Every row keys to the same active flag; the last one should win.
	m, err := mustQuery(t, rn, "SELECT active, name FROM users WHERE active = 1 ORDER BY id", nil).PkMap()
	if err != nil {
		t.Fatalf("PkMap() error = %v", err)
	}
	if len(m) != 1 {
		t.Fatalf("PkMap() has %d entries, want 1", len(m))
	}
	if m[int64(1)]["name"] != "carol" {
		t.Errorf("PkMap() kept %v, want the last row", m[int64(1)])
	}
}

func TestKvMap(t *testing.T) {
	_, rn := setupTestDB(t)

	m, err := mustQuery(t, rn, "SELECT name, score FROM users", nil).KvMap()
	if err != nil {
		t.Fatalf("KvMap() error = %v", err)
	}
	want := map[any]any{"alice": 9.5, "bob": 7.0, "carol": 9.5}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("KvMap() = %v, want %v", m, want)
	}
}

func TestKvMapTooFewColumns(t *testing.T) {
	_, rn := setupTestDB(t)

	if _, err := mustQuery(t, rn, "SELECT name FROM users", nil).KvMap(); err == nil {
		t.Error("KvMap() should fail on a single-column result")
	}
}

func TestEach(t *testing.T) {
	_, rn := setupTestDB(t)

	var names []string
	err := mustQuery(t, rn, "SELECT name FROM users ORDER BY id", nil).Each(func(row Row) error {
		names = append(names, row["name"].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alice", "bob", "carol"}) {
		t.Errorf("Each() visited %v", names)
	}
}

func TestEachStopsOnError(t *testing.T) {
	_, rn := setupTestDB(t)

	stop := errors.New("stop")
	count := 0
	err := mustQuery(t, rn, "SELECT name FROM users ORDER BY id", nil).Each(func(Row) error {
		count++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Each() error = %v, want the callback error", err)
	}
	if count != 1 {
		t.Errorf("Each() visited %d rows after an error, want 1", count)
	}
}
