//go:build tinygo

package tmc2209

import "machine"

// UARTStream adapts a TinyGo machine.UART to the Stream interface the
// protocol layer in driver.go consumes. The TMC2209 wiring is a single
// shared wire: the host's own transmission is echoed back on RX before
// the chip's reply, which Driver.readRegisterRaw accounts for.
type UARTStream struct {
	uart *machine.UART
}

// NewUARTStream configures uart at the TMC2209's fixed 115200 8N1 and
// returns a Stream backed by it.
func NewUARTStream(uart *machine.UART) (*UARTStream, error) {
	if err := uart.Configure(machine.UARTConfig{BaudRate: 115200}); err != nil {
		return nil, err
	}
	return &UARTStream{uart: uart}, nil
}

func (s *UARTStream) Write(p []byte) (int, error) {
	return s.uart.Write(p)
}

func (s *UARTStream) Read(p []byte) (int, error) {
	return s.uart.Read(p)
}
