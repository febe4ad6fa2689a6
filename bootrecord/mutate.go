package bootrecord

import "errors"

// ErrInvalidTier is returned by DecrementTries when tier is not Tier2 or Tier3.
var ErrInvalidTier = errors.New("bootrecord: invalid tier")

// DecrementTries decrements the try counter for tier (Tier2 or Tier3),
// saturating at 0, and returns the new remaining count. tier must be Tier2
// or Tier3; any other value returns ErrInvalidTier and leaves r unmodified.
func DecrementTries(r *Record, tier Tier) (uint8, error) {
	switch tier {
	case Tier2:
		if r.TriesT2 > 0 {
			r.TriesT2--
		}

		return r.TriesT2, nil
	case Tier3:
		if r.TriesT3 > 0 {
			r.TriesT3--
		}

		return r.TriesT3, nil
	default:
		return 0, ErrInvalidTier
	}
}
