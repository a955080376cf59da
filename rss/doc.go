// Package rss fetches and parses RSS-style advisory feeds. Feeds are
// reached through a same-origin proxy when one is configured, since the
// upstream providers do not allow cross-origin access.
package rss
