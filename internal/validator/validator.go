package validator

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// ValidAddress reports whether s is a well-formed 0x-prefixed hex account
// address. Syntactic check only; existence on chain is not verified here.
// The prefix is required even though go-ethereum would accept bare hex.
func ValidAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// ValidNetwork reports whether s names a supported network.
func ValidNetwork(s string) bool {
	for _, n := range models.Networks {
		if s == string(n) {
			return true
		}
	}
	return false
}

// Normalize trims and lowercases user-supplied address/network input so
// cache keys and lookups are case-insensitive.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
