// Package blob keeps decoded and recorded audio addressable by opaque
// references, so chat events can point at playable content without
// carrying the bytes. Logging out revokes every reference.
package blob
