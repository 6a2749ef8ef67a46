// Package modes builds the block ciphers and modes of operation the engine
// supports. Every mode is available as a sequential Stream; counter-based and
// offset-based modes are additionally available as a Seekable that encrypts
// any block-aligned chunk of a body independently and combines per-chunk
// results into the same tag the Stream would produce.
package modes
