package capture

// reframer serves frames of any length from a device that delivers fixed-size
// buffers. Samples left over from one Read are returned first by the next.
type reframer struct {
	buf  []int16
	pos  int
	fill func() error
}

// newReframer wraps buf, which fill overwrites with the next device buffer.
func newReframer(buf []int16, fill func() error) *reframer {
	return &reframer{buf: buf, pos: len(buf), fill: fill}
}

func (r *reframer) Read(frame []int16) error {
	for filled := 0; filled < len(frame); {
		if r.pos == len(r.buf) {
			if err := r.fill(); err != nil {
				return err
			}
			r.pos = 0
		}
		n := copy(frame[filled:], r.buf[r.pos:])
		r.pos += n
		filled += n
	}
	return nil
}
