package cache

import "github.com/taskvault/taskvault/internal/logger"

// Invalidator evicts the cache entries made stale by a mutation. It runs
// after the store transaction commits and before the mutation's response is
// produced, so a subsequent read never observes a stale entry for the
// affected owner.
type Invalidator struct {
	cache *ReadCache
	keys  KeyPolicy
	log   logger.Logger
}

// NewInvalidator creates an invalidator over the given cache.
func NewInvalidator(c *ReadCache) *Invalidator {
	return &Invalidator{
		cache: c,
		log:   logger.Cache(),
	}
}

// OnMutation evicts the all-tasks key and the affected owner's key. Entries
// for unrelated owners stay valid.
func (i *Invalidator) OnMutation(ownerID int64) {
	i.cache.Evict(i.keys.AllKey(""))
	i.cache.Evict(i.keys.OwnerKey(ownerID, ""))
	i.log.Debug("evicted stale listings", "owner_id", ownerID)
}

// ClearAll drops every cached listing. Coarse fallback; not used on the
// per-mutation path.
func (i *Invalidator) ClearAll() {
	i.cache.Clear()
	i.log.Debug("cleared all cached listings")
}
