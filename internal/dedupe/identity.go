package dedupe

import (
	"fmt"
	"strings"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

// HashIDPrefix tags canonical identifiers derived from a title hash, so
// they can never collide with a source-native identifier.
const HashIDPrefix = "hash:"

// identityFn is one strategy in the resolution chain. It reports the
// identifier and whether it applies to the given raw paper.
type identityFn func(raw domain.RawPaper) (string, bool)

var identityChain = []identityFn{nativeIdentity, externalIdentity, hashIdentity}

// Resolve derives the canonical identifier for a raw paper. Strategies
// apply in priority order: the provider's own stable identifier, then a
// global identifier (DOI), then a hash of the normalised title combined
// with venue and year. Pure and deterministic; an item carrying none of
// the three is unidentifiable and rejected.
func Resolve(raw domain.RawPaper) (string, error) {
	for _, strategy := range identityChain {
		if id, ok := strategy(raw); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("item from %s has no native id, doi, or title to identify it by", raw.Source)
}

func nativeIdentity(raw domain.RawPaper) (string, bool) {
	id := strings.TrimSpace(raw.NativeID)
	return id, id != ""
}

func externalIdentity(raw domain.RawPaper) (string, bool) {
	id := strings.TrimSpace(raw.ExternalID)
	return id, id != ""
}

func hashIdentity(raw domain.RawPaper) (string, bool) {
	title := NormaliseTitle(raw.Title)
	if title == "" {
		return "", false
	}
	key := fmt.Sprintf("%s_%d_%s", title, raw.Year, raw.Venue)
	return HashIDPrefix + StableHash(key), true
}
