// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

import "fmt"

// LinkErrorKind classifies the ways a schema set can fail to link.
type LinkErrorKind int

const (
	LinkErrorDuplicateTypeName LinkErrorKind = iota
	LinkErrorDuplicateFieldName
	LinkErrorReferencedNamedTypeNotFound
	LinkErrorInvalidMapKeyType
	LinkErrorInvalidAssetRefInnerType
)

// LinkError describes a single validation failure found while linking.
type LinkError struct {
	Kind     LinkErrorKind
	TypeName string
	Detail   string
}

func (e *LinkError) Error() string {
	switch e.Kind {
	case LinkErrorDuplicateTypeName:
		return fmt.Sprintf("type name %s has already been used", e.TypeName)
	case LinkErrorDuplicateFieldName:
		return fmt.Sprintf("schema %s has a duplicate field %s", e.TypeName, e.Detail)
	case LinkErrorReferencedNamedTypeNotFound:
		return fmt.Sprintf("schema %s references a type %s that wasn't found", e.TypeName, e.Detail)
	case LinkErrorInvalidMapKeyType:
		return fmt.Sprintf("schema %s has a map with key of type %s, but this type cannot be used as a key", e.TypeName, e.Detail)
	case LinkErrorInvalidAssetRefInnerType:
		return fmt.Sprintf("schema %s has an asset ref to %s, but it is not a record", e.TypeName, e.Detail)
	}
	return fmt.Sprintf("error linking schema %s: %s", e.TypeName, e.Detail)
}
