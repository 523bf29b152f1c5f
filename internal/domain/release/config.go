package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UpdatePolicy advises the host when a downloaded release should be installed.
// The acquisition pipeline carries it verbatim and never acts on it.
type UpdatePolicy string

const (
	// PolicyOnStart installs the release on the next application start.
	PolicyOnStart UpdatePolicy = "start"
	// PolicyOnResume installs the release when the application resumes.
	PolicyOnResume UpdatePolicy = "resume"
	// PolicyNow installs the release as soon as it is downloaded.
	PolicyNow UpdatePolicy = "now"
)

var (
	// errReleaseVersionMissing is returned when a config has no release token.
	errReleaseVersionMissing = errors.New("application config has no release version")
	// errReleaseVersionUnsafe is returned when a release token cannot serve as a folder name.
	errReleaseVersionUnsafe = errors.New("release version is not a valid folder name")
)

// ApplicationConfig describes one published release of the content.
type ApplicationConfig struct {
	// ReleaseVersion is the opaque token identifying the release.
	// Tokens are compared for equality only, never ordered.
	ReleaseVersion string `json:"release"`
	// ContentURL is the base URL hosting the release manifest and files.
	ContentURL string `json:"content_url"`
	// MinimumNativeVersion is the lowest host build number the release
	// supports. Zero disables the compatibility gate.
	MinimumNativeVersion int `json:"min_native_interface,omitempty"`
	// UpdatePolicy is the advisory installation timing hint for hosts.
	UpdatePolicy UpdatePolicy `json:"update,omitempty"`
}

// ParseApplicationConfig decodes an application config document.
// Unknown fields are ignored. The release token is required; the content URL
// is not validated here, so a config advertising no URL still parses and the
// failure surfaces where the URL is actually used.
func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	var cfg ApplicationConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal application config: %w", err)
	}

	if cfg.ReleaseVersion == "" {
		return nil, errReleaseVersionMissing
	}

	// The token names the release folder on disk.
	if !validReleaseToken(cfg.ReleaseVersion) {
		return nil, fmt.Errorf("%w: %q", errReleaseVersionUnsafe, cfg.ReleaseVersion)
	}

	return &cfg, nil
}

// ValidReleaseVersion reports whether a token can name a release folder.
func ValidReleaseVersion(token string) bool {
	return token != "" && validReleaseToken(token)
}

// validReleaseToken reports whether a token is a single safe path component.
func validReleaseToken(token string) bool {
	if token == "." || token == ".." {
		return false
	}

	return !strings.ContainsAny(token, `/\`)
}

// Bytes serializes the config back to its wire format.
func (c *ApplicationConfig) Bytes() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal application config: %w", err)
	}

	return data, nil
}
