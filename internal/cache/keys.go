package cache

import "fmt"

// KeyPolicy derives cache keys deterministically from scope and owner. Owner
// keys are always built from the canonical numeric owner id; callers that
// resolve an owner by username must look up the id first so both spellings
// share one key.
//
// A non-empty bust token yields a key unique to that token. Such keys are
// never read from nor written to the cache: a busted request is always served
// fresh and its response is never persisted.
type KeyPolicy struct{}

// AllKey returns the key for the all-tasks listing.
func (KeyPolicy) AllKey(bustToken string) string {
	if bustToken != "" {
		return "all_tasks:bust:" + bustToken
	}
	return "all_tasks"
}

// OwnerKey returns the key for a single owner's listing.
func (KeyPolicy) OwnerKey(ownerID int64, bustToken string) string {
	if bustToken != "" {
		return fmt.Sprintf("user_tasks_%d:bust:%s", ownerID, bustToken)
	}
	return fmt.Sprintf("user_tasks_%d", ownerID)
}

// Bypass reports whether a request carrying this bust token must skip the
// cache entirely.
func (KeyPolicy) Bypass(bustToken string) bool {
	return bustToken != ""
}
