/*
Package storage provides the bbolt-backed column store underneath Tessera's
state storage layer.

Each column is a named bucket ordered by byte-lexicographic key comparison.
Reads go through point gets or paging iterators; writes go through batches
that apply atomically in a single transaction. The State column is
refcounted: values carry a little-endian i64 count suffix and survive until
the count drops to zero.

Iterators deliberately do not pin a read transaction for their whole
lifetime. They load pages through short-lived transactions and remember
their resume key, so a scan can straddle commits made by other writers
(such as the FlatState inlining migration's paused-update windows) without
blocking them or holding old pages alive.
*/
package storage
