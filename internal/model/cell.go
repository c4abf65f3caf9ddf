package model

import "fmt"

// PinDirection classifies a pin's signal direction.
type PinDirection int

const (
	DirectionInput PinDirection = iota + 1
	DirectionOutput
	DirectionInout
)

func (d PinDirection) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	case DirectionInout:
		return "inout"
	default:
		return fmt.Sprintf("PinDirection(%d)", int(d))
	}
}

// PinRole classifies the function of a pin on a sequential cell.
// Combinational cells use RoleNone for every pin.
type PinRole int

const (
	RoleNone PinRole = iota
	RoleData
	RoleClock
	RoleAsyncSet
	RoleAsyncReset
)

func (r PinRole) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleData:
		return "data"
	case RoleClock:
		return "clock"
	case RoleAsyncSet:
		return "async-set"
	case RoleAsyncReset:
		return "async-reset"
	default:
		return fmt.Sprintf("PinRole(%d)", int(r))
	}
}

// Pin describes one port of a cell.
//
// Capacitance is the characterized input capacitance estimate in the
// library's capacitance unit. It starts at zero and is filled in by the
// sweep from the averaged Q_in/Vdd measurements.
type Pin struct {
	Name        string
	Direction   PinDirection
	Role        PinRole
	Capacitance float64
}

// Behavior classifies a cell as combinational or sequential.
type Behavior int

const (
	Combinational Behavior = iota + 1
	Sequential
)

func (b Behavior) String() string {
	switch b {
	case Combinational:
		return "combinational"
	case Sequential:
		return "sequential"
	default:
		return fmt.Sprintf("Behavior(%d)", int(b))
	}
}

// Cell is the immutable description of one standard cell under test.
//
// A Cell is loaded once from its netlist/config source and never mutated
// afterwards; the characterization run that created it owns it. Functions
// maps each output pin name to its boolean function expression, e.g.
// "Y" -> "!(A&B)".
type Cell struct {
	Name     string
	Netlist  string // path to the cell's SPICE netlist
	Model    string // path to the transistor model include
	Instance string // subckt instance line, e.g. "X0 A B Y VDD VSS NAND2X1"
	Area     float64

	Pins      []Pin
	Functions map[string]string
	Behavior  Behavior
}

// Inputs returns the cell's input pins in declaration order.
// For sequential cells this includes data pins but excludes the clock and
// async controls, which have their own accessors.
func (c *Cell) Inputs() []Pin {
	var pins []Pin
	for _, p := range c.Pins {
		if p.Direction != DirectionInput {
			continue
		}
		if p.Role == RoleClock || p.Role == RoleAsyncSet || p.Role == RoleAsyncReset {
			continue
		}
		pins = append(pins, p)
	}
	return pins
}

// Outputs returns the cell's output pins in declaration order.
func (c *Cell) Outputs() []Pin {
	var pins []Pin
	for _, p := range c.Pins {
		if p.Direction == DirectionOutput {
			pins = append(pins, p)
		}
	}
	return pins
}

// Clock returns the clock pin of a sequential cell, or false.
func (c *Cell) Clock() (Pin, bool) {
	return c.pinWithRole(RoleClock)
}

// AsyncSet returns the asynchronous set pin, or false.
func (c *Cell) AsyncSet() (Pin, bool) {
	return c.pinWithRole(RoleAsyncSet)
}

// AsyncReset returns the asynchronous reset pin, or false.
func (c *Cell) AsyncReset() (Pin, bool) {
	return c.pinWithRole(RoleAsyncReset)
}

func (c *Cell) pinWithRole(role PinRole) (Pin, bool) {
	for _, p := range c.Pins {
		if p.Role == role {
			return p, true
		}
	}
	return Pin{}, false
}

// FindPin looks a pin up by name.
func (c *Cell) FindPin(name string) (Pin, bool) {
	for _, p := range c.Pins {
		if p.Name == name {
			return p, true
		}
	}
	return Pin{}, false
}

// Function returns the expression for an output pin, or false if the
// cell declares no function for it.
func (c *Cell) Function(output string) (string, bool) {
	fn, ok := c.Functions[output]
	return fn, ok
}
