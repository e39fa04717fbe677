// Package postlock provides mutual exclusion for post processing.
//
// Notification fan-out for a single post must not run concurrently with
// itself: an edit arriving while the original create is still being
// processed would race on collapse lookups and duplicate work. Locker
// serialises processing per key, where the key identifies a post.
//
// Two implementations are provided. MemoryLocker is process-local and is
// the right choice for a single worker process or tests. RedisLocker uses
// SET NX with a per-acquisition token so the lock holds across processes,
// and releases only the lock it acquired.
//
// # Usage
//
//	locker := postlock.NewMemoryLocker()
//	release, err := locker.Acquire(ctx, postlock.Key(post.ID))
//	if err != nil {
//	    return err
//	}
//	defer release()
package postlock
