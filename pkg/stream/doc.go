// Package stream delivers the entries of append-only logs to a consumer
// exactly once per cursor, in append order.
//
// A Manager keeps, for every stream it reads, the ID of the last entry it
// handed out. ReadUnread returns the entries after that ID and moves the
// cursor to the last one returned, including entries whose payload could not
// be decoded, so a poisoned entry never blocks the stream. ReadLatest peeks
// at the newest entry without touching the cursor.
//
// The log itself is abstracted behind Log; rediscomm.RedisLog implements it on
// Redis Streams and MemoryLog implements it in process. Cursor persistence is
// delegated to a cursor.Store.
package stream
