// Package inline rewrites calls that load SQL from external files into calls
// that embed the file's text, so bundled code needs no file I/O at run time.
//
// Given a TypeScript or JavaScript module containing
//
//	import { sql_file } from "@acme/db";
//	const q = sql_file<User>`./get-user.sql`;
//
// Transform produces
//
//	import { sql_file, sql } from "@acme/db";
//	const q = sql<User>`SELECT * FROM users WHERE id = \$1`;
//
// Calls may also use the function form, sql_file("./a.sql", x, y), which is
// rewritten to sql(`...`, x, y) so the trailing arguments are kept.
//
// Scanning is token based (see package jslex), so calls inside strings or
// comments are never touched and type arguments may nest. Imports are
// reconciled against parsed import declarations.
//
// Every failure is local. A SQL file that cannot be read leaves its call
// site verbatim and produces one Warning; the rest of the file is still
// rewritten.
package inline
