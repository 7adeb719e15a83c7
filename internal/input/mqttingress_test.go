package input

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"crabroll/internal/motorctl"
)

func TestParseMoveCommandAccepts(t *testing.T) {
	c := qt.New(t)
	cmd, err := ParseMoveCommand([]byte("57"))
	c.Assert(err, qt.IsNil)
	c.Assert(cmd, qt.Equals, motorctl.MoveToPosCommand(57))
}

func TestParseMoveCommandAcceptsBoundaries(t *testing.T) {
	c := qt.New(t)
	cmd, err := ParseMoveCommand([]byte("0"))
	c.Assert(err, qt.IsNil)
	c.Assert(cmd, qt.Equals, motorctl.MoveToPosCommand(0))

	cmd, err = ParseMoveCommand([]byte("100"))
	c.Assert(err, qt.IsNil)
	c.Assert(cmd, qt.Equals, motorctl.MoveToPosCommand(100))
}

func TestParseMoveCommandRejectsOutOfRange(t *testing.T) {
	c := qt.New(t)
	_, err := ParseMoveCommand([]byte("101"))
	c.Assert(err, qt.IsNotNil)

	_, err = ParseMoveCommand([]byte("-1"))
	c.Assert(err, qt.IsNotNil)
}

func TestParseMoveCommandRejectsGarbage(t *testing.T) {
	c := qt.New(t)
	_, err := ParseMoveCommand([]byte("not a number"))
	c.Assert(err, qt.IsNotNil)
}
