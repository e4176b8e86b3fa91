package godb

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// retryInterval is how long [BufferPool.getPage] sleeps between failed
// lock-acquisition attempts, per §4.3's "buffer pool polls acquire in a
// retry loop with a short sleep (~2ms) between attempts."
const retryInterval = 2 * time.Millisecond

// BufferPool is a bounded, transaction-aware cache of pages. It is the
// sole point at which pages are locked, evicted, and written back: all
// query operators and DBFile implementations go through it rather than
// touching a table's backing storage directly.
type BufferPool struct {
	mu       sync.Mutex
	pages    map[PageID]Page
	capacity int

	locks   *lockManager
	catalog Catalog
	log     Log

	// steal selects the eviction policy: STEAL (dirty pages may be
	// evicted, logged before write) or NO-STEAL (dirty pages are never
	// evicted; eviction fails if every cached page is dirty). The test
	// suite targets STEAL semantics (§4.4); NO-STEAL exists because both
	// are legitimate policies and a caller may need the stronger one.
	steal bool
}

// NewBufferPool creates a BufferPool with room for numPages pages,
// backed by catalog for table lookups and log for write-ahead logging.
// STEAL eviction is enabled; call DisableSteal to switch to NO-STEAL.
func NewBufferPool(numPages int, catalog Catalog, log Log) *BufferPool {
	return &BufferPool{
		pages:    make(map[PageID]Page),
		capacity: numPages,
		locks:    newLockManager(),
		catalog:  catalog,
		log:      log,
		steal:    true,
	}
}

// DisableSteal switches the pool to NO-STEAL eviction: dirty pages are
// never evicted, and eviction fails with [BufferPoolFullError] if every
// cached page is dirty.
func (bp *BufferPool) DisableSteal() { bp.steal = false }

// GetPage retrieves pid from its table file, on behalf of tid, under the
// requested permission, per §4.4: it loops acquiring the lock (sleeping,
// without holding bp.mu, between attempts), then serves the page from
// cache or loads it via the Catalog's DBFile, evicting first if the
// pool is at capacity.
func (bp *BufferPool) GetPage(tid TransactionID, pid PageID, perm RWPerm) (Page, error) {
	file, err := bp.catalog.GetDatabaseFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	return bp.getPage(file, pid, tid, perm)
}

// getPage is GetPage's implementation, parameterized directly by the
// DBFile so that a DBFile can fetch its own pages without a catalog
// round trip.
func (bp *BufferPool) getPage(file DBFile, pid PageID, tid TransactionID, perm RWPerm) (Page, error) {
	for {
		acquired, err := bp.tryAcquire(tid, pid, perm)
		if err != nil {
			// Best-effort purge: tid's locks and dirty pages must be gone
			// before this error reaches the caller, but a failure while
			// purging must not mask the abort itself (the caller needs to
			// see TransactionAbortedError to know to retry).
			bp.abortTransaction(tid)
			return nil, err
		}
		if acquired {
			break
		}
		time.Sleep(retryInterval)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if page, ok := bp.pages[pid]; ok {
		return page, nil
	}
	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}
	page, err := file.ReadPage(pid.PageNumber)
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = page
	return page, nil
}

func (bp *BufferPool) tryAcquire(tid TransactionID, pid PageID, perm RWPerm) (bool, error) {
	if perm == ReadOnly {
		return bp.locks.acquireShared(tid, pid)
	}
	return bp.locks.acquireExclusive(tid, pid)
}

// publish installs a freshly-created page (one that InsertTuple just
// appended to file) directly into the cache, evicting first if
// necessary. The page has already been written to disk by the caller.
func (bp *BufferPool) publish(file DBFile, p Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.pages[p.ID()]; ok {
		return
	}
	if len(bp.pages) >= bp.capacity {
		bp.evictLocked()
	}
	bp.pages[p.ID()] = p
}

// InsertTuple inserts t into tableID's DBFile on behalf of tid, then
// marks every page the insert touched dirty and caches it (evicting if
// the cache is now over capacity).
func (bp *BufferPool) InsertTuple(tid TransactionID, tableID int64, t *Tuple) error {
	file, err := bp.catalog.GetDatabaseFile(tableID)
	if err != nil {
		return err
	}
	modified, err := file.InsertTuple(tid, t)
	if err != nil {
		return err
	}
	bp.adoptDirtied(tid, modified)
	return nil
}

// DeleteTuple removes t (identified by its RecordID) from its table on
// behalf of tid.
func (bp *BufferPool) DeleteTuple(tid TransactionID, tableID int64, t *Tuple) error {
	file, err := bp.catalog.GetDatabaseFile(tableID)
	if err != nil {
		return err
	}
	modified, err := file.DeleteTuple(tid, t)
	if err != nil {
		return err
	}
	bp.adoptDirtied(tid, modified)
	return nil
}

func (bp *BufferPool) adoptDirtied(tid TransactionID, pages []Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range pages {
		p.MarkDirty(tid, true)
		if _, ok := bp.pages[p.ID()]; !ok && len(bp.pages) >= bp.capacity {
			bp.evictLocked()
		}
		bp.pages[p.ID()] = p
	}
}

// evictLocked picks a victim and removes it from the cache. Must be
// called with bp.mu held.
func (bp *BufferPool) evictLocked() error {
	ids := maps.Keys(bp.pages)
	if bp.steal {
		return bp.evictStealLocked(ids)
	}
	return bp.evictNoStealLocked(ids)
}

// evictStealLocked flushes (logging before writing) and drops a
// uniformly-random cached page, dirty or clean.
func (bp *BufferPool) evictStealLocked(ids []PageID) error {
	if len(ids) == 0 {
		return newErr(BufferPoolFullError, "no pages to evict")
	}
	victim := ids[rand.Intn(len(ids))]
	if err := bp.flushPageLocked(victim); err != nil {
		return err
	}
	delete(bp.pages, victim)
	return nil
}

// evictNoStealLocked picks a clean victim uniformly at random; it
// refuses to evict a dirty page, failing if every cached page is dirty.
func (bp *BufferPool) evictNoStealLocked(ids []PageID) error {
	clean := make([]PageID, 0, len(ids))
	for _, id := range ids {
		if _, dirty := bp.pages[id].IsDirty(); !dirty {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return newErr(BufferPoolFullError, "buffer pool full of dirty pages")
	}
	victim := clean[rand.Intn(len(clean))]
	delete(bp.pages, victim)
	return nil
}

// flushPage writes pid's page back to disk (logging before/after first,
// per STEAL's log-before-page-write ordering) if it is dirty, and
// clears its dirty flag.
func (bp *BufferPool) flushPage(pid PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushPageLocked(pid)
}

func (bp *BufferPool) flushPageLocked(pid PageID) error {
	page, ok := bp.pages[pid]
	if !ok {
		return nil
	}
	dirtier, dirty := page.IsDirty()
	if !dirty {
		return nil
	}
	if bp.log != nil {
		if err := bp.log.LogWrite(dirtier, page.GetBeforeImage(), page.GetPageData()); err != nil {
			return err
		}
	}
	file, err := bp.catalog.GetDatabaseFile(pid.TableID)
	if err != nil {
		return err
	}
	if err := file.WritePage(page); err != nil {
		return err
	}
	page.MarkDirty(TransactionID{}, false)
	return nil
}

// FlushAllPages flushes every dirty cached page. It is a testing
// convenience; it is not transaction-safe.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	ids := maps.Keys(bp.pages)
	bp.mu.Unlock()
	for _, id := range ids {
		if err := bp.flushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// TransactionComplete ends tid, per §4.4.
//
// On commit (NO FORCE): every cached page is logged (before-image,
// current bytes) against the log collaborator, the log is forced, and
// each page's before-image is advanced to its current bytes. No page is
// written to disk as part of commit.
//
// On abort: every cached page dirtied by tid is reloaded from its
// DBFile, discarding tid's in-memory changes.
//
// In both cases, every lock tid holds is then released, and tid is
// purged from the wait-for graph.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	if commit {
		bp.mu.Lock()
		ids := maps.Keys(bp.pages)
		bp.mu.Unlock()

		err := bp.commitLocked(tid, ids)
		for _, id := range ids {
			bp.locks.releasePage(tid, id)
		}
		bp.locks.removeDependency(tid)
		bp.locks.finishTransaction(tid)
		return err
	}
	return bp.abortTransaction(tid)
}

// abortTransaction reloads every page tid dirtied from its backing
// DBFile, discarding tid's in-memory changes, then releases every lock
// tid holds and purges it from the wait-for graph. Per §7, a caller that
// receives a [TransactionAbortedError] must find tid's locks and dirty
// pages already gone, so both the deadlock path in getPage and an
// explicit TransactionComplete(tid, false) route through this.
func (bp *BufferPool) abortTransaction(tid TransactionID) error {
	bp.mu.Lock()
	ids := maps.Keys(bp.pages)
	bp.mu.Unlock()

	err := bp.abortLocked(tid, ids)
	for _, id := range ids {
		bp.locks.releasePage(tid, id)
	}
	bp.locks.removeDependency(tid)
	bp.locks.finishTransaction(tid)
	return err
}

func (bp *BufferPool) commitLocked(tid TransactionID, ids []PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, id := range ids {
		page := bp.pages[id]
		dirtier, _ := page.IsDirty()
		if bp.log != nil {
			if err := bp.log.LogWrite(dirtier, page.GetBeforeImage(), page.GetPageData()); err != nil {
				return err
			}
		}
		page.SetBeforeImage()
	}
	if bp.log != nil {
		return bp.log.Force()
	}
	return nil
}

func (bp *BufferPool) abortLocked(tid TransactionID, ids []PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, id := range ids {
		page := bp.pages[id]
		dirtier, dirty := page.IsDirty()
		if !dirty || dirtier != tid {
			continue
		}
		file, err := bp.catalog.GetDatabaseFile(id.TableID)
		if err != nil {
			return err
		}
		fresh, err := file.ReadPage(id.PageNumber)
		if err != nil {
			return err
		}
		bp.pages[id] = fresh
	}
	return nil
}
