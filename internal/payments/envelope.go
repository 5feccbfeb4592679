package payments

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Envelope is a signed transfer request as submitted by wallets.
type Envelope struct {
	RawMessage string `json:"rawMessage"`
	Signature  string `json:"signature"`
}

// TransferRequest is the message the sender signed.
type TransferRequest struct {
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
}

// RecoverSender returns the address whose key produced the personal_sign
// signature over the raw message.
func RecoverSender(rawMessage, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	// Wallets emit v as 27/28; recovery expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(rawMessage)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Open verifies the envelope and decodes the signed request.
func (e Envelope) Open() (common.Address, TransferRequest, error) {
	sender, err := RecoverSender(e.RawMessage, e.Signature)
	if err != nil {
		return common.Address{}, TransferRequest{}, err
	}
	var req TransferRequest
	if err := json.Unmarshal([]byte(e.RawMessage), &req); err != nil {
		return common.Address{}, TransferRequest{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return sender, req, nil
}

// ParseAddress validates a hex address and returns its ledger account code.
func ParseAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}
	return accountCode(common.HexToAddress(s)), nil
}

func accountCode(addr common.Address) string {
	return "0x" + common.Bytes2Hex(addr.Bytes())
}
