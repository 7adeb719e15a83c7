package tmc2209

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// fakeBus is a half-duplex Stream stand-in: every Write is expected to
// enqueue whatever bytes the test wants Read to return next (echo plus
// the simulated slave reply), mirroring the single shared wire.
type fakeBus struct {
	onWrite func(written []byte) []byte
	rx      []byte
}

func (b *fakeBus) Write(p []byte) (int, error) {
	b.rx = append(b.rx, b.onWrite(p)...)
	return len(p), nil
}

func (b *fakeBus) Read(p []byte) (int, error) {
	n := copy(p, b.rx)
	b.rx = b.rx[n:]
	return n, nil
}

func replyFrame(register uint8, value uint32) []byte {
	f := []byte{
		replyPreambleByte0,
		replyPreambleByte1,
		register & 0x7F,
		byte(value >> 24),
		byte(value >> 16),
		byte(value >> 8),
		byte(value),
		0,
	}
	f[7] = CalculateCRC(f[:7])
	return f
}

func TestCRCKnownVector(t *testing.T) {
	c := qt.New(t)
	// Write frame for GCONF=0b0111000001, per the boot sequence.
	// The 32-bit payload 0b0111000001 (0x000001C1) goes out big-endian.
	frame := []byte{syncByte, 0x00, GCONF | 0x80, 0x00, 0x00, 0x01, 0xC1}
	crc := CalculateCRC(frame)
	c.Assert(crc, qt.Equals, uint8(0xD5))
	// Round-trip through the frame layout and confirm the
	// receiver-side check accepts it.
	full := append(append([]byte{}, frame...), crc)
	c.Assert(CalculateCRC(full[:7]), qt.Equals, full[7])
}

func TestReadRegisterPreambleAtEveryOffset(t *testing.T) {
	for offset := 0; offset <= 6; offset++ {
		offset := offset
		t.Run("", func(t *testing.T) {
			c := qt.New(t)
			bus := &fakeBus{}
			bus.onWrite = func(written []byte) []byte {
				garbage := make([]byte, offset)
				for i := range garbage {
					garbage[i] = 0x01 // never matches the preamble bytes
				}
				return append(garbage, replyFrame(CHOPCONF, 0xDEADBEEF)...)
			}
			d := &Driver{stream: bus}
			v, err := d.readRegisterRaw(0, CHOPCONF)
			c.Assert(err, qt.IsNil)
			c.Assert(v, qt.Equals, uint32(0xDEADBEEF))
		})
	}
}

func TestReadRegisterCRCMismatch(t *testing.T) {
	c := qt.New(t)
	bus := &fakeBus{
		onWrite: func([]byte) []byte {
			f := replyFrame(GCONF, 42)
			f[7] ^= 0xFF // corrupt CRC
			return f
		},
	}
	d := &Driver{stream: bus}
	_, err := d.readRegisterRaw(0, GCONF)
	c.Assert(err, qt.Equals, ErrCRCMismatch)
}

func TestReadRegisterUnexpectedRegister(t *testing.T) {
	c := qt.New(t)
	bus := &fakeBus{
		onWrite: func([]byte) []byte {
			return replyFrame(IFCNT, 7) // reply echoes a different register
		},
	}
	d := &Driver{stream: bus}
	_, err := d.readRegisterRaw(0, GCONF)
	c.Assert(err, qt.Equals, ErrUnexpectedRegister)
}

func TestWriteRegisterVerified(t *testing.T) {
	c := qt.New(t)
	deviceIfcnt := uint8(5)
	shadow := uint8(5)
	bus := &fakeBus{
		onWrite: func(written []byte) []byte {
			if len(written) == 4 {
				return replyFrame(IFCNT, uint32(deviceIfcnt))
			}
			deviceIfcnt++ // the device accepts the write and advances its counter
			return nil
		},
	}
	d := &Driver{stream: bus}
	d.ifcnt[0] = &shadow

	err := d.WriteRegisterVerified(0, GCONF, 0b0111000001)
	c.Assert(err, qt.IsNil)
}

func TestWriteRegisterVerifiedDetectsDroppedWrite(t *testing.T) {
	c := qt.New(t)
	deviceIfcnt := uint8(9)
	shadow := uint8(9)
	bus := &fakeBus{
		onWrite: func(written []byte) []byte {
			if len(written) == 4 {
				return replyFrame(IFCNT, uint32(deviceIfcnt)) // never advances: write was dropped
			}
			return nil
		},
	}
	d := &Driver{stream: bus}
	d.ifcnt[0] = &shadow

	err := d.WriteRegisterVerified(0, GCONF, 0b0111000001)
	c.Assert(err, qt.Equals, ErrIFCNTMismatch)
}

func TestWriteRegisterUnpopulatedAddress(t *testing.T) {
	c := qt.New(t)
	d := &Driver{stream: &fakeBus{onWrite: func([]byte) []byte { return nil }}}
	err := d.WriteRegisterVerified(2, GCONF, 0)
	c.Assert(err, qt.Equals, ErrUnpopulatedAddress)
}
