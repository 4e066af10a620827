package rfdc

import (
	"fmt"
	"strings"
)

// Board describes the evaluation board specific parts of bring-up.
type Board struct {
	Name string

	// ClockGPIO is the GPIO line handed to the clock chip driver.
	ClockGPIO int

	DACSourceTile uint32
	ADCSourceTile uint32

	// DACDistTile and ADCDistTile are the tiles that distribute their clock
	// to the other tiles of the same kind.
	DACDistTile uint32
	ADCDistTile uint32

	// SkipOddDACBlocks is set when the odd DAC blocks are not bonded out. The
	// converter then reports half the block count and only even block ids
	// are valid.
	SkipOddDACBlocks bool

	// ADCBlocks and DACBlocks are the physical blocks per tile.
	ADCBlocks int
	DACBlocks int
}

// Supported boards.
var (
	ZCU216 = Board{
		Name:          "ZCU216",
		ClockGPIO:     486,
		DACSourceTile: 1,
		ADCSourceTile: 5,
		DACDistTile:   2,
		ADCDistTile:   2,
		ADCBlocks:     4,
		DACBlocks:     4,
	}

	ZCU208 = Board{
		Name:             "ZCU208",
		ClockGPIO:        494,
		DACSourceTile:    3,
		ADCSourceTile:    5,
		DACDistTile:      0,
		ADCDistTile:      2,
		SkipOddDACBlocks: true,
		ADCBlocks:        2,
		DACBlocks:        4,
	}
)

// BoardByName looks up a supported board, ignoring case.
//
// Parameters:
//   - name: Board name such as "zcu216"
//
// Returns:
//   - The board profile, or an error for unsupported boards
func BoardByName(name string) (Board, error) {
	for _, b := range []Board{ZCU216, ZCU208} {
		if strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}

	return Board{}, fmt.Errorf("unsupported board %q", name)
}
