// Package encryption runs password based file encryption and decryption.
// A Processor validates the request, picks the sequential or the parallel
// pipeline, writes the output atomically and reports progress and the outcome
// through a Listener. Parallel encryption is available for CTR, GCM, CCM, OCB
// and EAX; decryption is always sequential so the tag is verified over the
// whole ciphertext.
package encryption
