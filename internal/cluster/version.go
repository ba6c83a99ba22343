package cluster

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SpecHash is the version of a desired or observed resource specification.
func SpecHash(spec interface{}) string {
	document, err := json.Marshal(spec)
	if err != nil {
		panic(err)
	}
	h := sha256.New()
	h.Write(document)
	return hex.EncodeToString(h.Sum(nil))
}

func ShortVersion(version string) string {
	if len(version) > 12 {
		return version[:12]
	}
	return version
}
