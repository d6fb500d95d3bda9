// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020-2024
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package ringbuf

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size, in bytes, of a packet header: u32 num_samples
// || u8 flags, little-endian, per spec.md §6.
const HeaderSize = 5

// Flag bits defined on the packet header, spec.md §3/§6.
const (
	// FlagInterleaved marks the payload as a single contiguous I/Q plane.
	// When clear, the payload is two planes (I, then Q) of signed 16-bit
	// samples.
	FlagInterleaved uint8 = 1 << 0

	// FlagStreamReset marks this as an event packet: num_samples is 0 and
	// there is no payload.
	FlagStreamReset uint8 = 1 << 1
)

var (
	// ErrPacketTooLarge is returned by ReadPacket for a planar
	// (de-interleaved) packet when the temp buffer is smaller than
	// baseSamples*2 bytes, too small to re-interleave through.
	ErrPacketTooLarge = fmt.Errorf("ringbuf: packet exceeds temp buffer capacity")

	// ErrCorruptStream is returned by ReadPacket on a malformed header or
	// truncated payload: a fatal, stream-is-corrupt condition per
	// spec.md §4.2 and §7.
	ErrCorruptStream = fmt.Errorf("ringbuf: corrupt packet stream")
)

// Writer writes SDR capture packets into a Ring, per spec.md §4.2.
type Writer struct {
	ring *Ring
}

// NewWriter wraps a Ring for packet writes.
func NewWriter(ring *Ring) *Writer {
	return &Writer{ring: ring}
}

// WriteInterleavedChunk writes a header plus numSamples*pairBytes bytes
// of interleaved I/Q payload. It uses Ring.TryWrite: a short write (header
// or payload) is reported back as the number of header+payload bytes
// actually accepted, so the caller (the capture worker) can count a drop
// without blocking the hardware callback thread.
func (w *Writer) WriteInterleavedChunk(numSamples uint32, data []byte, pairBytes int) int {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], numSamples)
	hdr[4] = FlagInterleaved

	want := int(numSamples) * pairBytes
	if want > len(data) {
		want = len(data)
	}

	n := w.ring.TryWrite(hdr[:])
	if n < HeaderSize {
		return n
	}
	n += w.ring.TryWrite(data[:want])
	return n
}

// WriteDeinterleavedChunk writes a header plus two numSamples*2-byte
// planes (I, then Q), for hardware that emits separate I/Q planes
// (e.g. SDRplay).
func (w *Writer) WriteDeinterleavedChunk(numSamples uint32, iPlane, qPlane []byte) int {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], numSamples)
	hdr[4] = 0

	n := w.ring.TryWrite(hdr[:])
	if n < HeaderSize {
		return n
	}
	want := int(numSamples) * 2
	if want > len(iPlane) {
		want = len(iPlane)
	}
	n += w.ring.TryWrite(iPlane[:want])
	if want > len(qPlane) {
		want = len(qPlane)
	}
	n += w.ring.TryWrite(qPlane[:want])
	return n
}

// WriteResetEvent writes a header-only STREAM_RESET packet.
func (w *Writer) WriteResetEvent() int {
	var hdr [HeaderSize]byte
	hdr[4] = FlagStreamReset
	return w.ring.TryWrite(hdr[:])
}

// Reader reads SDR capture packets out of a Ring, re-interleaving planar
// payloads as needed, per spec.md §4.2.
type Reader struct {
	ring        *Ring
	baseSamples int
	pairBytes   int
}

// NewReader wraps a Ring for packet reads. baseSamples is BASE_SAMPLES,
// the truncation threshold from spec.md §4.2; pairBytes is the wire size
// of one interleaved input sample (SampleFormat.BytesPerSamplePair()),
// which target buffers passed to ReadPacket must be sized against.
func NewReader(ring *Ring, baseSamples, pairBytes int) *Reader {
	return &Reader{ring: ring, baseSamples: baseSamples, pairBytes: pairBytes}
}

// readFull reads exactly len(p) bytes, blocking across multiple Ring.Read
// calls if needed. It returns false (with n < len(p)) only on ring EOF
// mid-packet, which is a corrupt-stream condition for anything but a
// header read at a packet boundary.
func (r *Reader) readFull(p []byte) (n int, ok bool) {
	for n < len(p) {
		got := r.ring.Read(p[n:])
		if got == 0 {
			return n, false
		}
		n += got
	}
	return n, true
}

// ReadPacket reads one packet from the ring.
//
// Returns (0, false, nil) on clean ring EOF; (0, true, nil) on a
// STREAM_RESET event; (n, false, nil) with n frames placed, always
// interleaved, into target (truncated to target's capacity per spec.md
// §4.2's truncation policy); or a non-nil error if the stream is corrupt.
//
// temp must be at least baseSamples*2 bytes; it is used only to
// re-interleave de-interleaved (planar) payloads, and is untouched for
// interleaved ones.
func (r *Reader) ReadPacket(target []byte, temp []byte) (frames int, isReset bool, err error) {
	var hdr [HeaderSize]byte
	n, ok := r.readFull(hdr[:])
	if n == 0 {
		return 0, false, nil
	}
	if !ok {
		return 0, false, fmt.Errorf("%w: short header read (%d/%d bytes)", ErrCorruptStream, n, HeaderSize)
	}

	numSamples := binary.LittleEndian.Uint32(hdr[0:4])
	flags := hdr[4]

	if flags&FlagStreamReset != 0 {
		return 0, true, nil
	}

	if flags&FlagInterleaved != 0 {
		return r.readInterleaved(numSamples, target)
	}
	return r.readDeinterleaved(numSamples, target, temp)
}

func (r *Reader) readInterleaved(numSamples uint32, target []byte) (int, bool, error) {
	pairBytes := r.pairBytes
	if pairBytes == 0 {
		pairBytes = 1
	}

	frames := int(numSamples)
	truncated := false
	if frames > r.baseSamples {
		truncated = true
		frames = r.baseSamples
	}

	wantBytes := frames * pairBytes
	n, ok := r.readFull(target[:wantBytes])
	if !ok {
		return 0, false, fmt.Errorf("%w: short interleaved payload (%d/%d bytes)", ErrCorruptStream, n, wantBytes)
	}

	if truncated {
		// Truncation policy, spec.md §4.2: discard the remaining source
		// bytes to re-sync the ring with the packet's declared length.
		extra := (int(numSamples) - frames) * pairBytes
		r.discard(extra)
	}
	return frames, false, nil
}

func (r *Reader) readDeinterleaved(numSamples uint32, target []byte, temp []byte) (int, bool, error) {
	frames := int(numSamples)
	truncated := false
	if frames > r.baseSamples {
		truncated = true
		frames = r.baseSamples
	}
	if len(temp) < r.baseSamples*2 {
		return 0, false, fmt.Errorf("%w: temp buffer too small for re-interleaving", ErrPacketTooLarge)
	}

	iPlane := temp[:frames*2]
	n, ok := r.readFull(iPlane)
	if !ok {
		return 0, false, fmt.Errorf("%w: short I-plane payload (%d/%d bytes)", ErrCorruptStream, n, len(iPlane))
	}

	qPlane := target[:frames*4][frames*2:]
	n, ok = r.readFull(qPlane)
	if !ok {
		return 0, false, fmt.Errorf("%w: short Q-plane payload (%d/%d bytes)", ErrCorruptStream, n, len(qPlane))
	}

	// Re-interleave in place: target ends up i0,q0,i1,q1,... as signed
	// 16-bit little-endian pairs. qPlane aliases the tail of out, so this
	// must walk forward (i=0 upward): dest(i) never overlaps source(j)
	// for any j>i, but walking backward would clobber source(0..i-1)
	// before it's read.
	out := target[:frames*4]
	for i := 0; i < frames; i++ {
		copy(out[i*4+2:i*4+4], qPlane[i*2:i*2+2])
		copy(out[i*4+0:i*4+2], iPlane[i*2:i*2+2])
	}

	if truncated {
		extra := (int(numSamples) - frames) * 2 * 2 // both planes
		r.discard(extra)
	}
	return frames, false, nil
}

// discard reads and throws away n bytes, used by the truncation policy to
// resynchronize the ring past a packet's undelivered tail.
func (r *Reader) discard(n int) {
	var scratch [4096]byte
	for n > 0 {
		want := len(scratch)
		if want > n {
			want = n
		}
		got, ok := r.readFull(scratch[:want])
		n -= got
		if !ok {
			return
		}
	}
}

// vim: foldmethod=marker
