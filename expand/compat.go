// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import "fmt"

// Compat holds the behaviors of conditional parameter expansions on which
// shells disagree. The zero value behaves like Bash.
//
// Compat implements flag.Value, accepting "bash" and "posix".
type Compat struct {
	// UnsetStatus is the exit status used by UnsetParameterError.
	// Zero means 1, like Bash. Dash and other POSIX shells use 2.
	UnsetStatus uint8

	// KeepAssignFields makes an unquoted "${name=word}" expand to the
	// fields of word as they were before the assignment. By default, like
	// Bash, the expansion is the assigned value, which is then split again.
	//
	// For example, with the positional parameters "1 2" and "3 4",
	// ${v=x"$@"x} expands to "x1", "2", "3", "4x" by default, and to
	// "x1 2", "3 4x" with this option.
	KeepAssignFields bool
}

var (
	CompatBash  = Compat{}
	CompatPOSIX = Compat{UnsetStatus: 2, KeepAssignFields: true}
)

func (c Compat) unsetStatus() uint8 {
	if c.UnsetStatus == 0 {
		return 1
	}
	return c.UnsetStatus
}

func (c Compat) normalized() Compat {
	c.UnsetStatus = c.unsetStatus()
	return c
}

func (c *Compat) String() string {
	switch c.normalized() {
	case CompatBash.normalized():
		return "bash"
	case CompatPOSIX:
		return "posix"
	}
	return fmt.Sprintf("status=%d,keepfields=%t", c.unsetStatus(), c.KeepAssignFields)
}

func (c *Compat) Set(s string) error {
	switch s {
	case "bash":
		*c = CompatBash
	case "posix":
		*c = CompatPOSIX
	default:
		return fmt.Errorf("unknown compatibility mode: %q", s)
	}
	return nil
}
