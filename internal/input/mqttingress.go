package input

import (
	"fmt"
	"strconv"

	"crabroll/internal/motorctl"
)

// ParseMoveCommand parses an MQTT command-topic payload: UTF-8 text
// holding a signed decimal integer in [0, 100]. Any other payload is
// rejected; per the error handling design, the caller treats this as a
// Soft error and aborts the MQTT session.
func ParseMoveCommand(payload []byte) (motorctl.Command, error) {
	n, err := strconv.Atoi(string(payload))
	if err != nil {
		return motorctl.Command{}, fmt.Errorf("input: payload %q is not a decimal integer: %w", payload, err)
	}
	if n < 0 || n > 100 {
		return motorctl.Command{}, fmt.Errorf("input: payload %d out of range [0,100]", n)
	}
	return motorctl.MoveToPosCommand(uint8(n)), nil
}
