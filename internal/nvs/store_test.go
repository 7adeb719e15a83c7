package nvs

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestGetAbsentKeyNotFound(t *testing.T) {
	c := qt.New(t)
	s, err := Open(NewMemDevice(128))
	c.Assert(err, qt.IsNil)
	_, err = s.Get(0)
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := qt.New(t)
	s, err := Open(NewMemDevice(128))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Put(0, 2048), qt.IsNil)
	v, err := s.Get(0)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(2048))
}

func TestPutNewestValueWins(t *testing.T) {
	c := qt.New(t)
	s, err := Open(NewMemDevice(128))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Put(0, 100), qt.IsNil)
	c.Assert(s.Put(0, 200), qt.IsNil)
	v, err := s.Get(0)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(200))
}

func TestOpenResumesAppendPointAfterReopen(t *testing.T) {
	c := qt.New(t)
	dev := NewMemDevice(128)
	s1, err := Open(dev)
	c.Assert(err, qt.IsNil)
	c.Assert(s1.Put(0, 7), qt.IsNil)

	s2, err := Open(dev)
	c.Assert(err, qt.IsNil)
	c.Assert(s2.Put(0, 9), qt.IsNil)
	v, err := s2.Get(0)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(9))
}

func TestTornWriteFallsBackToOlderGoodRecord(t *testing.T) {
	c := qt.New(t)
	dev := NewMemDevice(128)
	s, err := Open(dev)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Put(0, 42), qt.IsNil)
	c.Assert(s.Put(0, 43), qt.IsNil)

	// Corrupt the newest record's CRC byte in place, simulating a torn
	// write at the tail without advancing the append pointer.
	buf := make([]byte, recordSize)
	dev.ReadAt(buf, recordSize)
	buf[6] ^= 0xFF
	dev.WriteAt(buf, recordSize)

	v, err := s.Get(0)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(42))

	// Once the older record is corrupt too, no valid record remains.
	dev.ReadAt(buf, 0)
	buf[6] ^= 0xFF
	dev.WriteAt(buf, 0)

	_, err = s.Get(0)
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestDeviceFull(t *testing.T) {
	c := qt.New(t)
	s, err := Open(NewMemDevice(recordSize))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Put(0, 1), qt.IsNil)
	c.Assert(s.Put(0, 2), qt.Equals, ErrDeviceFull)
}
