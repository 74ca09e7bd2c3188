package sqltpl

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"
)

// renderState carries the per-render mutable state: the working copy of the
// caller's parameter map and the counter used to mint fresh bind keys.
type renderState struct {
	params map[string]any
	config *Config
	n      int
}

func newRenderState(config *Config, params map[string]any) *renderState {
	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &renderState{params: copied, config: config}
}

// funcs returns the stateful function overrides installed on the per-render
// template clone.
func (s *renderState) funcs() template.FuncMap {
	return template.FuncMap{
		"bind": s.bind,
	}
}

// bind registers v as a fresh named bind parameter and returns its
// placeholder, e.g. ":bp0". Keys already present in the parameter map are
// skipped so generated keys never collide with caller-supplied ones.
func (s *renderState) bind(v any) (Raw, error) {
	for {
		key := s.config.BindPrefix + strconv.Itoa(s.n)
		s.n++
		if _, exists := s.params[key]; exists {
			continue
		}
		if r, ok := v.(Raw); ok {
			v = string(r)
		}
		s.params[key] = v
		return Raw(":" + key), nil
	}
}

// rawFunc marks a value as intentionally injected SQL, bypassing the
// interpolation safety check.
func rawFunc(v any) Raw {
	if r, ok := v.(Raw); ok {
		return r
	}
	return Raw(fmt.Sprint(v))
}

// identFunc validates v as a bare SQL identifier (column or table name) and
// returns it. Unlike the implicit safety check it rejects empty strings.
func identFunc(v any) (Raw, error) {
	s := fmt.Sprint(v)
	if s == "" || !safeValueRe.MatchString(s) {
		return "", fmt.Errorf("%w: invalid identifier %q", ErrUnsafeValue, s)
	}
	return Raw(s), nil
}

// identsFunc validates every element of a slice as a SQL identifier and
// joins them with ", ", for column lists.
func identsFunc(v any) (Raw, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return "", errors.New("idents: argument must be a slice")
	}
	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		id, err := identFunc(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		parts = append(parts, string(id))
	}
	return Raw(strings.Join(parts, ", ")), nil
}

// commaFunc exists so templates can emit a separator inside a range without
// tripping the safety check: {{if gt $i 0}}{{comma}}{{end}}.
func commaFunc() Raw {
	return ","
}

// bindStub stands in for bind on the shared template set, which only needs
// the name to exist at parse time. Executions always go through a clone
// where the per-render implementation is installed.
func bindStub(any) (Raw, error) {
	return "", errors.New("bind called outside of a render")
}
