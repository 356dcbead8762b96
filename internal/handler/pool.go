package handler

import (
	"bytes"
	"sync"
)

const (
	// snapshot responses carry the whole turn log, so start buffers large enough for a typical match
	initialBufferSize = 4 << 10
	maxPooledBuffer   = 64 << 10
)

var responseBuffers = sync.Pool{
	New: func() any { return bytes.NewBuffer(make([]byte, 0, initialBufferSize)) },
}

func getBuffer() *bytes.Buffer {
	return responseBuffers.Get().(*bytes.Buffer)
}

// putBuffer returns buf to the pool unless it grew past maxPooledBuffer
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	responseBuffers.Put(buf)
}
