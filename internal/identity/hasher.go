package identity

import "golang.org/x/crypto/bcrypt"

// Hasher is the one-way credential hash used for member PINs.
type Hasher interface {
	Hash(pin string) ([]byte, error)
	Compare(hash []byte, pin string) error
}

// BcryptHasher hashes PINs with bcrypt. Compare is constant time.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost
// is outside the range bcrypt accepts.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), h.Cost)
}

func (h BcryptHasher) Compare(hash []byte, pin string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(pin))
}
