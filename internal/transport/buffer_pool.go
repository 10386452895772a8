package transport

import "sync"

// bufferPool reuses the 9000-byte receive buffers Receive needs on every
// call, avoiding an allocation per datagram (RFC 6762 §17: mDNS messages
// can reach the jumbo frame size beyond classic DNS's 512-byte ceiling).
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 9000)
		return &buf
	},
}

// GetBuffer returns a pooled 9000-byte buffer. The caller must return it
// via PutBuffer, typically with a deferred call right after Get.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer returns buf to the pool. The caller must not use buf again
// afterward. The buffer is zeroed first so one receiver's datagram never
// leaks into the next caller that draws the same backing array.
func PutBuffer(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	bufferPool.Put(bufPtr)
}
