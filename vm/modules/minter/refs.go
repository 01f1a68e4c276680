package minter

import (
	"strconv"

	"github.com/opaline-labs/mintchain/crypto"
)

// Content-addressing constants. The byte layout of URIs and attributes is
// fixed: marketplaces and off-chain indexers parse these strings, so the
// exact concatenation below must never change.
const (
	ipfsGatewayHost = "https://ipfs.io/ipfs/"
	ipfsScheme      = "ipfs://"
	metadataKeyName = "metadata:"
	tagsKeyName     = "tags:"
	attrSeparator   = ";"
	uriSlash        = "/"
	metadataFileExt = ".json"
	defaultImgExt   = ".png"

	royaltiesMax = 10000 // basis points, 100%
)

// buildURIs returns the media URIs for one unit: the HTTP gateway form
// followed by the native ipfs scheme form.
func buildURIs(imageBaseCid, fileExtension string, index uint32) []string {
	idx := strconv.FormatUint(uint64(index), 10)
	return []string{
		ipfsGatewayHost + imageBaseCid + uriSlash + idx + fileExtension,
		ipfsScheme + imageBaseCid + uriSlash + idx + fileExtension,
	}
}

// buildAttributes returns the on-chain attribute buffer for one unit:
// tags:<tags>;metadata:<metadataBaseCid>/<index>.json
func buildAttributes(tags, metadataBaseCid string, index uint32) []byte {
	idx := strconv.FormatUint(uint64(index), 10)
	s := tagsKeyName + tags + attrSeparator + metadataKeyName + metadataBaseCid + uriSlash + idx + metadataFileExt
	return []byte(s)
}

// attributesHash is the digest stored on the unit, computed over the exact
// attribute bytes.
func attributesHash(attributes []byte) string {
	return crypto.Hash(attributes)
}
