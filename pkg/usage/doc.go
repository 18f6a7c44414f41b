// Package usage tracks per-user usage counters: lifetime AI credits and PDF
// downloads per calendar month.
//
// The monthly rollover is lazy. Reads treat a stale period as zero usage, and
// the next increment resets the stored counter before adding to it. Stores
// perform that reset and the increment as one atomic step, so concurrent
// downloads never lose updates. Limits are enforced by the caller (see the
// gate package); the store only counts.
//
// Backends: MemoryStore, RedisStore and the PostgreSQL repository in svc/store.
package usage
