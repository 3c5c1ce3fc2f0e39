// Package dyncol converts attribute trees to and from MariaDB dynamic columns.
//
// On write, Build encodes a tree with the binary codec and emits a nested
// COLUMN_CREATE expression whose keys and values are all bound parameters:
//
//	COLUMN_CREATE(:dyncol1, :dyncol2, :dyncol3, COLUMN_CREATE(:dyncol4, :dyncol5))
//
// Null leaves and empty subtrees are left out, which is how an unset
// attribute disappears from storage. A node with nothing left becomes NULL.
//
// On read, the column is selected through COLUMN_JSON and Decode turns the
// returned text back into a tree. The server writes control characters
// unescaped inside strings (MDEV-7813), so Decode escapes them before
// parsing.
//
// Placeholder names come from an atomic counter that only grows. The
// process-wide DefaultPlaceholders is never reset; a codec can be given
// its own Placeholders when statement-local names are enough.
package dyncol
