// Package protocol encodes the 8-byte command frames understood by LCT
// liquid-cooling controllers over the Nordic UART BLE service.
//
// Every command frame has the layout
//
//	FE <command> <enabled> <p0> <p1> <p2> <p3> EF
//
// and is written once to the UART TX characteristic. The device does not
// acknowledge commands.
package protocol

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a command parameter does not fit the frame.
var ErrOutOfRange = errors.New("protocol: parameter out of range")

// Frame delimiters.
const (
	FrameStart byte = 0xFE
	FrameEnd   byte = 0xEF
)

// FrameSize is the length of every command frame.
const FrameSize = 8

// Command identifiers.
const (
	CmdReset byte = 0x19
	CmdFan   byte = 0x1B
	CmdPump  byte = 0x1C
	CmdRGB   byte = 0x1E
)

// DefaultPumpDuty is the pump duty cycle used when the caller has no
// stored value.
const DefaultPumpDuty = 60

// Frame is a single encoded command.
type Frame [FrameSize]byte

// Command returns the command identifier byte.
func (f Frame) Command() byte { return f[1] }

// Enabled reports whether the frame switches its subsystem on.
func (f Frame) Enabled() bool { return f[2] == 0x01 }

// Bytes returns a copy of the frame suitable for a characteristic write.
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameSize)
	copy(b, f[:])
	return b
}

func (f Frame) String() string {
	return fmt.Sprintf("% X", f[:])
}

func newFrame(cmd byte, enabled bool, p0, p1, p2, p3 byte) Frame {
	var en byte
	if enabled {
		en = 0x01
	}
	return Frame{FrameStart, cmd, en, p0, p1, p2, p3, FrameEnd}
}

// EncodeRGB builds the frame that sets the lighting color and effect.
func EncodeRGB(red, green, blue int, mode RGBMode) (Frame, error) {
	for _, ch := range []struct {
		name string
		v    int
	}{{"red", red}, {"green", green}, {"blue", blue}} {
		if ch.v < 0 || ch.v > 0xFF {
			return Frame{}, fmt.Errorf("%w: %s channel %d not in 0..255", ErrOutOfRange, ch.name, ch.v)
		}
	}
	if !mode.Valid() {
		return Frame{}, fmt.Errorf("%w: rgb mode %d not in 0..3", ErrOutOfRange, mode)
	}
	return newFrame(CmdRGB, true, byte(red), byte(green), byte(blue), byte(mode)), nil
}

// EncodeRGBOff builds the frame that turns the lighting off.
func EncodeRGBOff() Frame {
	return newFrame(CmdRGB, false, 0, 0, 0, 0)
}

// EncodeFan builds the frame that sets the fan duty cycle.
func EncodeFan(duty int) (Frame, error) {
	if duty < 0 || duty > 0xFF {
		return Frame{}, fmt.Errorf("%w: fan duty %d not in 0..255", ErrOutOfRange, duty)
	}
	return newFrame(CmdFan, true, byte(duty), 0, 0, 0), nil
}

// EncodeFanOff builds the frame that stops the fan.
func EncodeFanOff() Frame {
	return newFrame(CmdFan, false, 0, 0, 0, 0)
}

// EncodePump builds the frame that sets the pump duty cycle and supply
// voltage.
func EncodePump(duty int, voltage PumpVoltage) (Frame, error) {
	if duty < 0 || duty > 100 {
		return Frame{}, fmt.Errorf("%w: pump duty %d not in 0..100", ErrOutOfRange, duty)
	}
	if !voltage.Valid() {
		return Frame{}, fmt.Errorf("%w: pump voltage code %d not in 0..3", ErrOutOfRange, voltage)
	}
	return newFrame(CmdPump, true, byte(duty), byte(voltage), 0, 0), nil
}

// EncodePumpOff builds the frame that stops the pump.
func EncodePumpOff() Frame {
	return newFrame(CmdPump, false, 0, 0, 0, 0)
}

// EncodeReset builds the reset frame sent before disconnecting.
func EncodeReset() Frame {
	return newFrame(CmdReset, false, 0x01, 0, 0, 0)
}

// FirmwareVersionQuery returns the two-byte sequence that makes the
// device publish its firmware version on the RX characteristic.
func FirmwareVersionQuery() []byte {
	return []byte{0x73, 0x77}
}
