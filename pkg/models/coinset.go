package models

import (
	"encoding/json"
	"regexp"
	"slices"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
)

const maxCoinIDLen = 64

var coinIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidateCoinID checks id against the provider's identifier alphabet.
func ValidateCoinID(id string) error {
	if id == "" {
		return apperr.Validation("coin id is empty")
	}
	if len(id) > maxCoinIDLen {
		return apperr.Validation("coin id %q is longer than %d characters", id, maxCoinIDLen)
	}
	if !coinIDRegex.MatchString(id) {
		return apperr.Validation("coin id %q has invalid characters", id)
	}
	return nil
}

// CoinSet is an unordered set of coin identifiers. It serializes as a sorted
// JSON array so persisted and rendered forms are stable.
type CoinSet map[string]struct{}

func NewCoinSet(ids ...string) CoinSet {
	s := make(CoinSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s CoinSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s CoinSet) Len() int {
	return len(s)
}

func (s CoinSet) Clone() CoinSet {
	c := make(CoinSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s CoinSet) Equal(o CoinSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Slice returns the members in ascending order, never nil.
func (s CoinSet) Slice() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Validate reports the first invalid member.
func (s CoinSet) Validate() error {
	for _, id := range s.Slice() {
		if err := ValidateCoinID(id); err != nil {
			return err
		}
	}
	return nil
}

func (s CoinSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *CoinSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewCoinSet(ids...)
	return nil
}
