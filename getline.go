package cfile

import "github.com/discochess/cfile/internal/stats"

// DefaultLineCapacity is the capacity ReadLine allocates when the caller
// passes a buffer without room.
const DefaultLineCapacity = 80

// ReadLine reads one line of any length. It reuses buf's backing array
// when it has capacity and doubles the capacity whenever a read fills the
// buffer before a line terminator ('\n' or '\r') is seen. The returned
// slice holds the line including its terminator, if any. ReadLine returns
// false when no byte could be read.
//
//	var line []byte
//	for ok := true; ok; {
//	    if line, ok = f.ReadLine(line); ok {
//	        process(line)
//	    }
//	}
func (f *File) ReadLine(buf []byte) ([]byte, bool) {
	if f.check() != nil {
		return buf[:0], false
	}

	line := buf[:0]
	if cap(line) == 0 {
		line = make([]byte, 0, DefaultLineCapacity)
	}
	for {
		if len(line) == cap(line) {
			grown := make([]byte, len(line), 2*cap(line))
			copy(grown, line)
			line = grown
		}

		n, err := f.backend.Gets(line[len(line):cap(line)])
		f.stats.IncCounter(stats.MetricBytesRead, int64(n))
		if n == 0 {
			f.noteErr(err)
			break
		}
		line = line[:len(line)+n]

		if last := line[len(line)-1]; last == '\n' || last == '\r' {
			break
		}
		// A short read without a terminator is the end of the data.
		if len(line) < cap(line) {
			break
		}
	}
	return line, len(line) > 0
}

// ReadLineShrink is ReadLine for callers that keep lines around: the
// returned slice has no spare capacity, so a long line read earlier does
// not pin a large backing array.
func (f *File) ReadLineShrink(buf []byte) ([]byte, bool) {
	line, ok := f.ReadLine(buf)
	if !ok || cap(line) == len(line) {
		return line, ok
	}
	trimmed := make([]byte, len(line))
	copy(trimmed, line)
	return trimmed, true
}
