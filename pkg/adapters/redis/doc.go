// Package redis provides Redis-backed adapters: an event publisher that fans
// session events out to observers on any replica, and a distributed lock for
// shared browsers.
package redis
