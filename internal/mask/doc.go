// Package mask implements the sensitive-field registry and the recursive
// payload masker. The registry merges a built-in compliance baseline with an
// optional user-supplied document; the masker walks arbitrary
// object/array/scalar trees and replaces every subtree stored under a
// sensitive key with a fixed marker before a record leaves process memory.
package mask
