// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package datamodel

import "errors"

// Every fallible DataSet operation returns one of these sentinels as is,
// without naming the asset or path involved. Callers decide whether a
// failure is surfaced or tolerated; nothing here panics.
var (
	ErrAssetNotFound                     = errors.New("asset not found")
	ErrInvalidPath                       = errors.New("invalid property path")
	ErrInvalidSchema                     = errors.New("schema does not match")
	ErrPathParentIsNull                  = errors.New("a nullable ancestor of the path is null")
	ErrPathDynamicArrayEntryDoesNotExist = errors.New("a container entry on the path does not exist")
	ErrValueDoesNotMatchSchema           = errors.New("value does not match schema at path")
	ErrDuplicateEntry                    = errors.New("entry already exists")
	ErrPrototypeCycle                    = errors.New("prototype chain would form a cycle")
	ErrLocationCycle                     = errors.New("asset location would form a cycle")
	ErrSchemaNotFound                    = errors.New("schema fingerprint is not in the schema set")
)
