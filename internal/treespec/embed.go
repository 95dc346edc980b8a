package treespec

import _ "embed"

// FamilyTree is the built-in demo document: Grandpa shares a writable money
// cell with the whole family and hands a diamond asset to Father only.
//
//go:embed family.yaml
var FamilyTree []byte
