package sqltpl

import (
	"strings"
	"testing"
)

func TestExpandListParams(t *testing.T) {
	r, _ := NewRenderer(discardLogger(), nil, "")

	stmt, err := r.Render("SELECT * FROM users WHERE id IN :ids_list", map[string]any{
		"ids_list": []any{7, 8, 9},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "SELECT * FROM users WHERE id IN (:ids_list_0, :ids_list_1, :ids_list_2)"
	if stmt.Query != want {
		t.Errorf("Query = %q, want %q", stmt.Query, want)
	}
	if _, ok := stmt.Params["ids_list"]; ok {
		t.Error("expanded slice should be removed from the params")
	}
	for i, want := range []any{7, 8, 9} {
		key := "ids_list_" + string(rune('0'+i))
		if got := stmt.Params[key]; got != want {
			t.Errorf("Params[%s] = %v, want %v", key, got, want)
		}
	}
}

func TestExpandEmptyList(t *testing.T) {
	r, _ := NewRenderer(discardLogger(), nil, "")

	stmt, err := r.Render("DELETE FROM t WHERE id IN :ids_list", map[string]any{
		"ids_list": []any{},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := "DELETE FROM t WHERE id IN (null)"
	if stmt.Query != want {
		t.Errorf("Query = %q, want %q", stmt.Query, want)
	}
}

func TestExpandTupleList(t *testing.T) {
	r, _ := NewRenderer(discardLogger(), nil, "")

	stmt, err := r.Render("SELECT * FROM t WHERE (a, b) IN :pairs_tuple_list", map[string]any{
		"pairs_tuple_list": [][]any{{1, "x"}, {2, "y"}},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "SELECT * FROM t WHERE (a, b) IN ((:pairs_tuple_list_0_0, :pairs_tuple_list_0_1), (:pairs_tuple_list_1_0, :pairs_tuple_list_1_1))"
	if stmt.Query != want {
		t.Errorf("Query = %q, want %q", stmt.Query, want)
	}
	if stmt.Params["pairs_tuple_list_0_0"] != 1 || stmt.Params["pairs_tuple_list_1_1"] != "y" {
		t.Errorf("tuple params = %v", stmt.Params)
	}
}

func TestExpandMultipleOccurrences(t *testing.T) {
	r, _ := NewRenderer(discardLogger(), nil, "")

	stmt, err := r.Render("SELECT (SELECT 1 WHERE x IN :ids_list), y FROM t WHERE y IN :ids_list", map[string]any{
		"ids_list": []any{1},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := strings.Count(stmt.Query, "(:ids_list_0)"); got != 2 {
		t.Errorf("every occurrence should be expanded, got %q", stmt.Query)
	}
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params map[string]any
	}{
		{
			name:   "missing param",
			query:  "WHERE id IN :ids_list",
			params: map[string]any{},
		},
		{
			name:   "not a slice",
			query:  "WHERE id IN :ids_list",
			params: map[string]any{"ids_list": 42},
		},
		{
			name:   "tuple element not a slice",
			query:  "WHERE (a, b) IN :pairs_tuple_list",
			params: map[string]any{"pairs_tuple_list": []any{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := expandListParams(tt.query, tt.params, 1000); err == nil {
				t.Error("expandListParams() should have failed")
			}
		})
	}
}

func TestExpandLimit(t *testing.T) {
	params := map[string]any{"ids_list": []any{1, 2, 3, 4}}
	if _, _, err := expandListParams("IN :ids_list", params, 3); err == nil {
		t.Error("expansion over the limit should fail")
	}

	params = map[string]any{"ids_list": []any{1, 2, 3}}
	if _, _, err := expandListParams("IN :ids_list", params, 3); err != nil {
		t.Errorf("expansion at the limit should pass, got %v", err)
	}
}

func TestExpandKeyBoundary(t *testing.T) {
	// ":ids_list" must not eat the front of ":other_ids_list".
	params := map[string]any{
		"ids_list":       []any{1},
		"other_ids_list": []any{2},
	}
	query, params, err := expandListParams("IN :ids_list AND IN :other_ids_list", params, 10)
	if err != nil {
		t.Fatalf("expandListParams() error = %v", err)
	}
	want := "IN (:ids_list_0) AND IN (:other_ids_list_0)"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if params["ids_list_0"] != 1 || params["other_ids_list_0"] != 2 {
		t.Errorf("params = %v", params)
	}
}
