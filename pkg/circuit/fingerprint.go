package circuit

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint computes the tertiary structural match key described in
// spec.md 3: "a deterministic hash over (lib_id, value, sorted
// pin-to-net incidences)". It is used by the synchronizer to pair
// components that carry no uuid match and whose reference is absent or
// conflicts (spec.md 4.6, matching phase step 3).
func Fingerprint(c *Component) string {
	var incidences []string
	for _, pin := range c.Pins {
		incidences = append(incidences, pin.Number+"="+pin.NetName)
	}
	sort.Strings(incidences)

	h := sha256.New()
	h.Write([]byte(c.LibID))
	h.Write([]byte{0})
	h.Write([]byte(c.Value()))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(incidences, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
