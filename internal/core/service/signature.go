package service

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

var errMalformedSignature = errors.New("malformed signature")

// EthSignatureVerifier verifies personal_sign signatures (EIP-191 version 0x45)
// produced by Ethereum wallets.
type EthSignatureVerifier struct{}

// NewEthSignatureVerifier returns a stateless verifier.
func NewEthSignatureVerifier() *EthSignatureVerifier {
	return &EthSignatureVerifier{}
}

// Verify reports whether signature is address's signature over the challenge
// message for nonce and authType. Malformed input is reported as false.
func (v *EthSignatureVerifier) Verify(address string, nonce int64, authType domain.AuthType, signature string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	recovered, err := v.Recover(domain.ChallengeMessage(nonce, authType), signature)
	if err != nil {
		return false
	}
	return recovered == common.HexToAddress(address)
}

// Recover returns the address that signed message.
func (v *EthSignatureVerifier) Recover(message, signature string) (common.Address, error) {
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", errMalformedSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", errMalformedSignature, len(sig))
	}

	// Wallets emit v as 27/28; the recovery routines expect 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, false) {
		return common.Address{}, fmt.Errorf("%w: values out of range", errMalformedSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", errMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
