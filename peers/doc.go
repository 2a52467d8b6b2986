// Package peers tracks which peer connections belong to a user.
//
// A client heartbeats each of its peer ids with Upsert; ListForUser returns
// the ids seen within the liveness window (90s by default). State lives in
// Redis:
//
//	peer:{id}:user_id     owner uuid, TTL 2x window
//	peer:{id}:updated_at  last heartbeat (unix ms), TTL 2x window
//	user:{uid}:peers      set of peer ids, TTL 2x window
//
// Set members whose heartbeat is stale, expired or owned by someone else are
// removed while listing.
package peers
