package hierarchy

import (
	"strconv"
	"unicode/utf16"

	"github.com/cespare/xxhash/v2"
)

// RootXpath is the parent path handed to every window root.
const RootXpath = "//"

// HashFunc maps an xpath to a 32-bit hash.
type HashFunc func(string) int32

// JavaStringHash computes java.lang.String#hashCode over the UTF-16 code
// units of s, with the same int32 overflow.
func JavaStringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

// XXHash folds the 64-bit xxhash of s into 32 bits.
func XXHash(s string) int32 {
	v := xxhash.Sum64String(s)
	return int32(uint32(v) ^ uint32(v>>32))
}

// Xpath appends "className[index+1]" to parentXpath.
func Xpath(parentXpath, className string, index int) string {
	return parentXpath + className + "[" + strconv.Itoa(index+1) + "]"
}

// Identify returns the xpath of a node and its hash with the window index
// folded in. The result depends only on its arguments.
func Identify(hash HashFunc, parentXpath, className string, index, rootIdx int) (string, int32) {
	xpath := Xpath(parentXpath, className, index)
	return xpath, hash(xpath) + int32(rootIdx)
}

// childXpath is the parentXpath handed to the children of a node.
func childXpath(xpath string) string {
	return xpath + "/"
}
