/*
Package sqlexec executes rendered SQL templates through database/sql and
maps the resulting rows into common Go shapes.

A Runner combines any Queryer (*sql.DB, *sql.Tx, *sql.Conn) with a
sqltpl.Renderer and a placeholder style. Query results come back as a
Results proxy with accessors for row maps, key/value maps, and scalars,
mirroring the shapes most application code actually wants instead of
hand-written Scan loops.
*/
package sqlexec
