package pumpswap

import (
	"encoding/binary"
	"fmt"
)

// Operation tags understood by the swap program.
const (
	TagBuy  uint8 = 0
	TagSell uint8 = 1
)

// PayloadSize is the fixed instruction data length: tag u8, amount_in u64 LE,
// slippage_bps u16 LE. No padding.
const PayloadSize = 1 + 8 + 2

// ErrMalformedPayload reports an instruction payload that does not match the
// program's fixed layout. This is a programming error, never retried.
var ErrMalformedPayload = fmt.Errorf("pumpswap: malformed instruction payload")

// Payload is the decoded form of the swap instruction data.
type Payload struct {
	Tag         uint8
	AmountIn    uint64
	SlippageBps uint16
}

// Encode serializes the payload into the program's 11-byte wire form.
func Encode(tag uint8, amountIn uint64, slippageBps uint16) ([]byte, error) {
	if tag != TagBuy && tag != TagSell {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedPayload, tag)
	}
	buf := make([]byte, PayloadSize)
	buf[0] = tag
	binary.LittleEndian.PutUint64(buf[1:9], amountIn)
	binary.LittleEndian.PutUint16(buf[9:11], slippageBps)
	return buf, nil
}

// Decode is the exact inverse of Encode.
func Decode(buf []byte) (Payload, error) {
	if len(buf) != PayloadSize {
		return Payload{}, fmt.Errorf("%w: length %d, want %d", ErrMalformedPayload, len(buf), PayloadSize)
	}
	tag := buf[0]
	if tag != TagBuy && tag != TagSell {
		return Payload{}, fmt.Errorf("%w: unknown tag %d", ErrMalformedPayload, tag)
	}
	return Payload{
		Tag:         tag,
		AmountIn:    binary.LittleEndian.Uint64(buf[1:9]),
		SlippageBps: binary.LittleEndian.Uint16(buf[9:11]),
	}, nil
}
