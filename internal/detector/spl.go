package detector

import (
	"encoding/binary"
	"fmt"
)

const (
	tokenAccountLen = 165
	mintAccountLen  = 82
)

// tokenAccountAmount reads the raw balance out of an SPL token account.
func tokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < tokenAccountLen {
		return 0, fmt.Errorf("token account too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[64:72]), nil
}

// mintDecimals reads the decimals field of an SPL mint account.
func mintDecimals(data []byte) (int, error) {
	if len(data) < mintAccountLen {
		return 0, fmt.Errorf("mint account too short: %d bytes", len(data))
	}
	return int(data[44]), nil
}
