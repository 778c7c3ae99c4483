package tracking

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/registry"
)

// Reference identifies an artifact version.
type Reference struct {
	Project string
	Name    string
	Version string
}

// ParseReference parses "[project/]name[:version]". The version defaults to
// "latest". Names are NFC normalized so visually identical names match.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("artifact reference is empty")
	}

	var ref Reference
	body := s
	if i := strings.LastIndex(body, ":"); i >= 0 {
		ref.Version = body[i+1:]
		body = body[:i]
		if ref.Version == "" {
			return Reference{}, fmt.Errorf("artifact reference %q: empty version", s)
		}
	} else {
		ref.Version = registry.AliasLatest
	}

	if i := strings.LastIndex(body, "/"); i >= 0 {
		ref.Project = body[:i]
		body = body[i+1:]
	}
	ref.Name = NormalizeName(body)
	if ref.Name == "" {
		return Reference{}, fmt.Errorf("artifact reference %q: empty name", s)
	}
	return ref, nil
}

// String prints the reference in canonical form.
func (r Reference) String() string {
	s := r.Name + ":" + r.Version
	if r.Project != "" {
		s = r.Project + "/" + s
	}
	return s
}

// NormalizeName trims and NFC normalizes an artifact name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
