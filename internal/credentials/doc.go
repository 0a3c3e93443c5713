// Package credentials persists the bearer token and the last-known user
// profile.
//
// SQLiteStore survives restarts; MemoryStore is used for ephemeral runs and
// tests. Both store opaque values under the well-known keys KeyToken and
// KeyProfile, and Clear removes the two together.
package credentials
