package transfer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Request is the transfer the user asks for. Field order is part of the
// canonical encoding.
type Request struct {
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
}

// Canonical returns the deterministic encoding that is both signed and
// submitted, e.g. {"amount":5,"recipient":"0xAB"}.
func (r Request) Canonical() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode transfer request: %w", err)
	}
	return string(b), nil
}

// ParseAmount validates user input as a base-10 integer.
func ParseAmount(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, input)
	}
	return amount, nil
}
