package sqltpl

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var listParamRe = regexp.MustCompile(`:[A-Za-z_][A-Za-z0-9_]*_list\b`)

// expandListParams rewrites every ":name_list" placeholder in query into a
// parenthesized group of per-element placeholders, moving the slice under
// params["name_list"] into individual entries. Placeholders ending in
// "_tuple_list" expand a slice of tuples into groups of groups, for
// multi-column IN clauses. An empty slice expands to "(null)" so the
// surrounding IN clause stays valid and matches nothing.
func expandListParams(query string, params map[string]any, maxExpansion int) (string, map[string]any, error) {
	matches := listParamRe.FindAllString(query, -1)
	if len(matches) == 0 {
		return query, params, nil
	}

	seen := make(map[string]struct{}, len(matches))
	var keys []string
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		keys = append(keys, m)
	}

	total := 0
	for _, key := range keys {
		name := key[1:]
		var err error
		if strings.HasSuffix(name, "_tuple_list") {
			query, err = expandTupleListKey(key, name, query, params, &total, maxExpansion)
		} else {
			query, err = expandListKey(key, name, query, params, &total, maxExpansion)
		}
		if err != nil {
			return "", nil, err
		}
	}
	return query, params, nil
}

func expandListKey(key, name, query string, params map[string]any, total *int, maxExpansion int) (string, error) {
	values, err := sliceValue(name, params)
	if err != nil {
		return "", err
	}

	*total += values.Len()
	if *total > maxExpansion {
		return "", fmt.Errorf("list expansion of %q exceeds the %d placeholder limit", name, maxExpansion)
	}

	delete(params, name)
	placeholders := make([]string, values.Len())
	for i := 0; i < values.Len(); i++ {
		elemName := name + "_" + strconv.Itoa(i)
		params[elemName] = values.Index(i).Interface()
		placeholders[i] = ":" + elemName
	}

	return replaceKey(query, key, group(placeholders)), nil
}

func expandTupleListKey(key, name, query string, params map[string]any, total *int, maxExpansion int) (string, error) {
	values, err := sliceValue(name, params)
	if err != nil {
		return "", err
	}

	delete(params, name)
	groups := make([]string, values.Len())
	for i := 0; i < values.Len(); i++ {
		tuple := reflect.ValueOf(values.Index(i).Interface())
		if !tuple.IsValid() || (tuple.Kind() != reflect.Slice && tuple.Kind() != reflect.Array) {
			return "", fmt.Errorf("tuple list parameter %q element %d is not a slice", name, i)
		}

		*total += tuple.Len()
		if *total > maxExpansion {
			return "", fmt.Errorf("list expansion of %q exceeds the %d placeholder limit", name, maxExpansion)
		}

		placeholders := make([]string, tuple.Len())
		for j := 0; j < tuple.Len(); j++ {
			elemName := name + "_" + strconv.Itoa(i) + "_" + strconv.Itoa(j)
			params[elemName] = tuple.Index(j).Interface()
			placeholders[j] = ":" + elemName
		}
		groups[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	return replaceKey(query, key, group(groups)), nil
}

func sliceValue(name string, params map[string]any) (reflect.Value, error) {
	v, ok := params[name]
	if !ok {
		return reflect.Value{}, fmt.Errorf("list parameter %q not provided", name)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return reflect.Value{}, fmt.Errorf("list parameter %q is not a slice", name)
	}
	return rv, nil
}

func group(parts []string) string {
	if len(parts) == 0 {
		return "(null)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// replaceKey substitutes every occurrence of key in query, using a word
// boundary so ":ids_list" never eats the front of ":ids_list_meta".
func replaceKey(query, key, replacement string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(key) + `\b`)
	return re.ReplaceAllLiteralString(query, replacement)
}
