package keepawake

import "golang.org/x/sys/windows"

// Execution state flags, per the Windows SetThreadExecutionState API.
const (
	esContinuous       = 0x80000000
	esSystemRequired   = 0x00000001
	esAwaymodeRequired = 0x00000040
)

// acquire sets the calling thread's execution state so Windows treats the
// process as actively using the system, and clears it again on Release.
func acquire() (*Token, error) {
	proc := windows.NewLazySystemDLL("kernel32.dll").NewProc("SetThreadExecutionState")

	set := func(flags uint32) {
		proc.Call(uintptr(flags))
	}

	set(esContinuous | esSystemRequired | esAwaymodeRequired)

	return &Token{release: func() error {
		set(esContinuous)
		return nil
	}}, nil
}
