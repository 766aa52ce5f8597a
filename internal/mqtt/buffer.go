package mqtt

import "log"

// bufferedMsg is a serialized message held while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the most recent messages up to a fixed capacity.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	msgs     []bufferedMsg
	start    int // index of the oldest message
	count    int
	dropping bool // set once the buffer overflowed, cleared on drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	capacity := len(r.msgs)
	if r.count < capacity {
		r.msgs[(r.start+r.count)%capacity] = msg
		r.count++
		return
	}

	if !r.dropping {
		log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", capacity)
		r.dropping = true
	}
	r.msgs[r.start] = msg
	r.start = (r.start + 1) % capacity
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	out := make([]bufferedMsg, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.msgs[(r.start+i)%len(r.msgs)])
	}

	r.start, r.count, r.dropping = 0, 0, false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
