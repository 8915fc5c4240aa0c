package msb

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/sp"
)

// Checksum suffixes appended to the canonical content before hashing.
const (
	suffixOR     = "O"
	suffixAND    = "A"
	suffixTarget = "T"
)

var checksumOptions = sp.CanonicalOptions{
	OmitAttrs: []string{sp.AttrObsnum},
	OmitTags:  []string{sp.TagTargetList},
}

// computeChecksum hashes the resolved content below wrapper. The wrapper's
// own attributes, obsnum counters and survey target lists do not contribute;
// membership of OR and AND groups and an override target do.
func computeChecksum(doc *sp.Document, wrapper *etree.Element, override *TargetEntry) (string, error) {
	body, err := doc.CanonicalChildren(wrapper, checksumOptions)
	if err != nil {
		return "", err
	}

	var inOR, inAND bool
	for _, a := range sp.Ancestors(wrapper) {
		switch a.Tag {
		case sp.TagOR:
			inOR = true
		case sp.TagAND:
			inAND = true
		}
	}
	if inOR {
		body += suffixOR
	}
	if inAND {
		body += suffixAND
	}
	if override != nil {
		body += suffixTarget + override.key
	}

	sum := md5.Sum([]byte(body))
	return hex.EncodeToString(sum[:]), nil
}
