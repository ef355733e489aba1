package fingerprint

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Attributes are the static device/browser properties a fingerprint is derived from.
// Volatile values (battery, IP, geolocation) must not be included.
type Attributes struct {
	UserAgent           string `json:"user_agent" yaml:"user_agent"`
	Platform            string `json:"platform" yaml:"platform"`
	Language            string `json:"language" yaml:"language"`
	ScreenResolution    string `json:"screen_resolution" yaml:"screen_resolution"`
	ColorDepth          string `json:"color_depth" yaml:"color_depth"`
	Timezone            string `json:"timezone" yaml:"timezone"`
	HardwareConcurrency string `json:"hardware_concurrency" yaml:"hardware_concurrency"`
	DeviceMemory        string `json:"device_memory" yaml:"device_memory"`
	TouchSupport        string `json:"touch_support" yaml:"touch_support"`
	// Extra holds vendor specific attributes.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (a Attributes) canonical() string {
	fields := map[string]string{
		"user_agent":           a.UserAgent,
		"platform":             a.Platform,
		"language":             a.Language,
		"screen_resolution":    a.ScreenResolution,
		"color_depth":          a.ColorDepth,
		"timezone":             a.Timezone,
		"hardware_concurrency": a.HardwareConcurrency,
		"device_memory":        a.DeviceMemory,
		"touch_support":        a.TouchSupport,
	}
	for k, v := range a.Extra {
		fields["x."+k] = v
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(fields[k]))
		b.WriteByte('\n')
	}
	return b.String()
}

// Compute returns a stable hex hash of the attributes.
func Compute(a Attributes) string {
	sum := blake2b.Sum256([]byte(a.canonical()))
	return hex.EncodeToString(sum[:])
}

// Comparison is the advisory result of checking a device against the stored one.
type Comparison struct {
	Current string `json:"current"`
	Stored  string `json:"stored,omitempty"`
	IsNew   bool   `json:"is_new"`
	Changed bool   `json:"changed"`
}

// Compare reports whether current differs from stored. An empty stored value is a first sighting.
func Compare(current, stored string) Comparison {
	if stored == "" {
		return Comparison{Current: current, IsNew: true}
	}
	return Comparison{Current: current, Stored: stored, Changed: current != stored}
}
