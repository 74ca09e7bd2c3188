/*
Package sqltpl renders SQL statements from Go text templates with
injection-safe parameter interpolation.

Every value a template writes into the SQL text is checked against a strict
identifier pattern; anything else must either be wrapped in Raw (an explicit
escape hatch) or routed through the bind template function, which turns the
value into a named bind parameter instead of splicing it into the query.
After rendering, ":name_list" and ":name_tuple_list" placeholders are
expanded into per-element placeholders for IN clauses, and the resulting
Statement can be bound for named, "?", "$n", or "@pn" drivers.

Templates can be rendered inline or loaded from a directory of "*.tmpl.sql"
files (with "*.part.sql" partials), with hot reloading via Refresh or Watch.
*/
package sqltpl
