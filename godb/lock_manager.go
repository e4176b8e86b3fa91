package godb

import (
	"sync"

	"golang.org/x/exp/maps"
)

// lockManager implements page-level shared/exclusive locking with
// wait-for-graph deadlock detection, per §4.3. All operations
// synchronize on a single mutex; contention is acceptable at this scale
// and it keeps deadlock reasoning simple (the manager never calls back
// into the buffer pool, so there is no risk of it deadlocking against
// the pool's own monitor).
type lockManager struct {
	mu sync.Mutex

	exclusive map[PageID]TransactionID
	shared    map[PageID]map[TransactionID]struct{}
	waitsFor  map[TransactionID]map[TransactionID]struct{}
}

func newLockManager() *lockManager {
	return &lockManager{
		exclusive: make(map[PageID]TransactionID),
		shared:    make(map[PageID]map[TransactionID]struct{}),
		waitsFor:  make(map[TransactionID]map[TransactionID]struct{}),
	}
}

// acquireShared attempts to grant tid a shared lock on pid. It returns
// (true, nil) once granted, (false, nil) if the caller should back off
// and retry, or a [TransactionAbortedError] if granting the wait would
// close a cycle in the wait-for graph.
func (lm *lockManager) acquireShared(tid TransactionID, pid PageID) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if holder, ok := lm.exclusive[pid]; ok && holder != tid {
		if lm.wouldCycle(tid, holder) {
			return false, newErr(TransactionAbortedError, "deadlock: %v waiting for exclusive lock held by %v on %v", tid, holder, pid)
		}
		lm.addWait(tid, holder)
		return false, nil
	}

	lm.clearWaits(tid)
	if lm.shared[pid] == nil {
		lm.shared[pid] = make(map[TransactionID]struct{})
	}
	lm.shared[pid][tid] = struct{}{}
	return true, nil
}

// acquireExclusive attempts to grant tid an exclusive lock on pid,
// handling upgrade from an existing shared lock held solely by tid.
func (lm *lockManager) acquireExclusive(tid TransactionID, pid PageID) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if holder, ok := lm.exclusive[pid]; ok {
		if holder == tid {
			return true, nil
		}
		if lm.wouldCycle(tid, holder) {
			return false, newErr(TransactionAbortedError, "deadlock: %v waiting for exclusive lock held by %v on %v", tid, holder, pid)
		}
		lm.addWait(tid, holder)
		return false, nil
	}

	holders := lm.shared[pid]
	switch len(holders) {
	case 0:
		lm.clearWaits(tid)
		lm.exclusive[pid] = tid
		return true, nil
	case 1:
		if _, solo := holders[tid]; solo {
			delete(lm.shared, pid)
			lm.clearWaits(tid)
			lm.exclusive[pid] = tid
			return true, nil
		}
	}

	for other := range holders {
		if other == tid {
			continue
		}
		if lm.wouldCycle(tid, other) {
			return false, newErr(TransactionAbortedError, "deadlock: %v waiting for shared lock held by %v on %v", tid, other, pid)
		}
	}
	for other := range holders {
		if other != tid {
			lm.addWait(tid, other)
		}
	}
	return false, nil
}

// wouldCycle reports whether adding the wait edge tid -> target would
// create a cycle in the wait-for graph, i.e. whether target can already
// reach tid. Must be called with lm.mu held.
func (lm *lockManager) wouldCycle(tid, target TransactionID) bool {
	if tid == target {
		return true
	}
	visited := map[TransactionID]bool{target: true}
	stack := []TransactionID{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == tid {
			return true
		}
		deps := maps.Keys(lm.waitsFor[cur])
		for _, next := range deps {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func (lm *lockManager) addWait(tid, target TransactionID) {
	if lm.waitsFor[tid] == nil {
		lm.waitsFor[tid] = make(map[TransactionID]struct{})
	}
	lm.waitsFor[tid][target] = struct{}{}
}

func (lm *lockManager) clearWaits(tid TransactionID) {
	delete(lm.waitsFor, tid)
}

// holdsLock reports whether tid holds any lock (shared or exclusive) on
// pid.
func (lm *lockManager) holdsLock(tid TransactionID, pid PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.exclusive[pid] == tid {
		return true
	}
	_, ok := lm.shared[pid][tid]
	return ok
}

// releasePage drops every lock tid holds on pid.
func (lm *lockManager) releasePage(tid TransactionID, pid PageID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.exclusive[pid] == tid {
		delete(lm.exclusive, pid)
	}
	if holders := lm.shared[pid]; holders != nil {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(lm.shared, pid)
		}
	}
}

// finishTransaction drops every lock tid holds, on any page.
func (lm *lockManager) finishTransaction(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for pid, holder := range lm.exclusive {
		if holder == tid {
			delete(lm.exclusive, pid)
		}
	}
	for pid, holders := range lm.shared {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(lm.shared, pid)
		}
	}
}

// removeDependency drops tid as a key and as a value from the wait-for
// graph: tid no longer waits on anyone, and no one waits on tid.
func (lm *lockManager) removeDependency(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.waitsFor, tid)
	for _, deps := range lm.waitsFor {
		delete(deps, tid)
	}
}
