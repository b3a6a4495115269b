package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed seed.toml
var defaultSeed string

type seedFile struct {
	Activities []Activity `toml:"activity"`
}

// DefaultSeed returns the activities bundled with the binary.
func DefaultSeed() []Activity {
	activities, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("embedded seed: %v", err))
	}
	return activities
}

// LoadSeedFile reads an operator-supplied seed. An empty path selects
// the bundled seed.
func LoadSeedFile(path string) ([]Activity, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultSeed(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	activities, err := ParseSeed(string(data))
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return activities, nil
}

// ParseSeed decodes a TOML document of [[activity]] tables. Unknown keys
// are rejected so typos do not silently drop data.
func ParseSeed(doc string) ([]Activity, error) {
	var sf seedFile
	md, err := toml.Decode(doc, &sf)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if _, err := buildEntries(sf.Activities); err != nil {
		return nil, err
	}
	for i := range sf.Activities {
		if sf.Activities[i].Participants == nil {
			sf.Activities[i].Participants = []string{}
		}
	}
	return sf.Activities, nil
}
