package encryption

import (
	"sync"
)

// DefaultChunkSize is the streaming buffer and parallel chunk size used when
// a request leaves it unset.
const DefaultChunkSize = 1 << 20

// bufferPool provides reusable chunk buffers of DefaultChunkSize. Requests
// with another chunk size allocate their own.
//
//nolint:gochecknoglobals
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, DefaultChunkSize)

		return &buf
	},
}

func getBuffer(size int) ([]byte, func()) {
	if size != DefaultChunkSize {
		return make([]byte, size), func() {}
	}

	buf, ok := bufferPool.Get().(*[]byte)
	if !ok {
		b := make([]byte, size)

		return b, func() {}
	}

	return *buf, func() { bufferPool.Put(buf) }
}
