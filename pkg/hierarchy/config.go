package hierarchy

import (
	"fmt"
	"strings"
)

// Defaults used when no configuration file overrides them.
const (
	DefaultSystemPackage = "com.android.systemui"
)

// DefaultNAFExcludedClasses are layout classes that commonly report
// clickable/enabled without being interactive.
var DefaultNAFExcludedClasses = []string{
	"android.widget.GridView",
	"android.widget.GridLayout",
	"android.widget.ListView",
	"android.widget.TableLayout",
}

// HashScheme selects the string hash behind xpathHash.
type HashScheme string

const (
	// HashJava reproduces java.lang.String#hashCode so identities match the
	// ones computed on the device.
	HashJava HashScheme = "java"
	// HashXX folds a 64-bit xxhash to 32 bits.
	HashXX HashScheme = "xxhash"
)

// Func returns the hash function for the scheme. The zero value is HashJava.
func (s HashScheme) Func() (HashFunc, error) {
	switch HashScheme(strings.ToLower(string(s))) {
	case "", HashJava:
		return JavaStringHash, nil
	case HashXX:
		return XXHash, nil
	default:
		return nil, fmt.Errorf("unknown hash scheme %q (use java or xxhash)", string(s))
	}
}

// Config controls window exclusion, the NAF heuristic and hashing.
type Config struct {
	// SystemPackage names the overlay package whose windows Fetch skips.
	// Empty disables the exclusion.
	SystemPackage string

	// NAFExcludedClasses are class-name suffixes that suppress the NAF
	// attribute in dumps.
	NAFExcludedClasses []string

	Hash HashScheme
}

// DefaultConfig returns the configuration used on stock Android builds.
func DefaultConfig() Config {
	return Config{
		SystemPackage:      DefaultSystemPackage,
		NAFExcludedClasses: append([]string(nil), DefaultNAFExcludedClasses...),
		Hash:               HashJava,
	}
}

// nafExcluded reports whether className ends with one of the excluded names.
func (c Config) nafExcluded(className string) bool {
	for _, excluded := range c.NAFExcludedClasses {
		if excluded != "" && strings.HasSuffix(className, excluded) {
			return true
		}
	}
	return false
}
