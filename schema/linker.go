// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

import (
	"cmp"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
)

// Linker accumulates named type definitions, registered in code or parsed
// from definition files. Linking applies aliases, validates every reference
// and produces a read-only Set with fingerprinted types.
type Linker struct {
	types   map[string]*defNamedType
	aliases map[string]string
	logger  *slog.Logger
}

// NewLinker creates an empty linker. A nil logger silences link tracing.
func NewLinker(logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Linker{
		types:   make(map[string]*defNamedType),
		aliases: make(map[string]string),
		logger:  logger,
	}
}

// UnlinkedTypeNames lists every accumulated type name, for diagnostics.
func (l *Linker) UnlinkedTypeNames() []string {
	names := make([]string, 0, len(l.types))
	for name := range l.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// addNamedType is the single gate every definition passes through, whether
// registered in code or parsed from a file.
func (l *Linker) addNamedType(def *defNamedType) error {
	l.logger.Debug("adding type", "name", def.name)
	for i := range def.fields {
		for j := 0; j < i; j++ {
			if def.fields[i].name == def.fields[j].name {
				return &LinkError{
					Kind:     LinkErrorDuplicateFieldName,
					TypeName: def.name,
					Detail:   def.fields[i].name,
				}
			}
		}
	}
	names := append([]string{def.name}, def.aliases...)
	for _, name := range names {
		if _, exists := l.types[name]; exists {
			return &LinkError{Kind: LinkErrorDuplicateTypeName, TypeName: name}
		}
		if _, exists := l.aliases[name]; exists {
			return &LinkError{Kind: LinkErrorDuplicateTypeName, TypeName: name}
		}
	}
	for _, alias := range def.aliases {
		l.aliases[alias] = def.name
	}
	l.types[def.name] = def
	return nil
}

// RegisterRecordType registers a record built in code.
func (l *Linker) RegisterRecordType(name string, build func(*RecordBuilder)) error {
	builder := &RecordBuilder{}
	build(builder)

	return l.addNamedType(&defNamedType{
		kind:    KindRecord,
		name:    name,
		aliases: builder.aliases,
		fields:  builder.fields,
		markup:  builder.markup,
	})
}

// RegisterEnumType registers an enum built in code.
func (l *Linker) RegisterEnumType(name string, build func(*EnumBuilder)) error {
	builder := &EnumBuilder{}
	build(builder)
	return l.addNamedType(&defNamedType{
		kind:    KindEnum,
		name:    name,
		aliases: builder.aliases,
		symbols: builder.symbols,
	})
}

// RegisterFixedType registers a fixed-length byte type built in code.
func (l *Linker) RegisterFixedType(name string, length int, build func(*FixedBuilder)) error {
	builder := &FixedBuilder{}
	if build != nil {
		build(builder)
	}
	return l.addNamedType(&defNamedType{
		kind:    KindFixed,
		name:    name,
		aliases: builder.aliases,
		length:  length,
	})
}

// AddSourceDir parses every schema definition file matching pattern under
// dir. Files are YAML documents (JSON parses as a YAML subset), each holding
// an array of named type definitions.
func (l *Linker) AddSourceDir(fs afero.Fs, dir string, pattern string) error {
	l.logger.Info("adding schema source dir", "dir", dir, "pattern", pattern)
	matches, err := afero.Glob(fs, filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("globbing schema dir %s: %w", dir, err)
	}
	for _, match := range matches {
		l.logger.Debug("parsing schema file", "file", match)
		data, err := afero.ReadFile(fs, match)
		if err != nil {
			return fmt.Errorf("reading schema file %s: %w", match, err)
		}
		defs, err := parseSchemaFile(data, match)
		if err != nil {
			return err
		}
		for _, def := range defs {
			if err := l.addNamedType(def); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Linker) validateTypeRef(owner string, ref *TypeRef, result *multierror.Error) {
	switch ref.kind {
	case KindNullable, KindStaticArray, KindDynamicArray:
		l.validateTypeRef(owner, ref.inner, result)

	case KindMap:
		switch ref.key.kind {
		case KindBoolean, KindI32, KindI64, KindU32, KindU64, KindString, KindAssetRef:
			// valid keys
		case kindNamedRef:
			// only enums may be used as named-type keys
			keyDef, found := l.types[ref.key.typeName]
			switch {
			case !found:
				result.Errors = append(result.Errors, &LinkError{
					Kind: LinkErrorReferencedNamedTypeNotFound, TypeName: owner, Detail: ref.key.typeName,
				})
			case keyDef.kind != KindEnum:
				result.Errors = append(result.Errors, &LinkError{
					Kind: LinkErrorInvalidMapKeyType, TypeName: owner, Detail: ref.key.typeName,
				})
			}
		default:
			result.Errors = append(result.Errors, &LinkError{
				Kind: LinkErrorInvalidMapKeyType, TypeName: owner, Detail: ref.key.kind.String(),
			})
		}
		l.validateTypeRef(owner, ref.value, result)

	case KindAssetRef:
		refDef, found := l.types[ref.typeName]
		switch {
		case !found:
			result.Errors = append(result.Errors, &LinkError{
				Kind: LinkErrorReferencedNamedTypeNotFound, TypeName: owner, Detail: ref.typeName,
			})
		case refDef.kind != KindRecord:
			result.Errors = append(result.Errors, &LinkError{
				Kind: LinkErrorInvalidAssetRefInnerType, TypeName: owner, Detail: ref.typeName,
			})
		}

	case kindNamedRef:
		if _, found := l.types[ref.typeName]; !found {
			result.Errors = append(result.Errors, &LinkError{
				Kind: LinkErrorReferencedNamedTypeNotFound, TypeName: owner, Detail: ref.typeName,
			})
		}
	}
}

// Link validates and fingerprints every accumulated type, consuming the
// linker and producing an immutable Set.
func (l *Linker) Link() (*Set, error) {
	// aliases first so validation and hashing see canonical names
	for _, def := range l.types {
		def.applyAliases(l.aliases)
	}

	validation := &multierror.Error{}
	for _, def := range l.types {
		for i := range def.fields {
			l.validateTypeRef(def.name, &def.fields[i].ref, validation)
		}
	}
	if err := validation.ErrorOrNil(); err != nil {
		return nil, err
	}

	// partial hash: each type's own shape, named references by name only
	partialHashes := make(map[string]utils.Hash128, len(l.types))
	for name, def := range l.types {
		partialHashes[name] = utils.WithHasher128(func(h hash.Hash) {
			def.partialHash(h)
		})
	}

	// fingerprint: hash of the partial hashes of the transitive related-type
	// set, in sorted name order
	fingerprints := make(map[string]Fingerprint, len(l.types))
	for name, def := range l.types {
		related := map[string]struct{}{name: {}}
		for {
			before := len(related)
			for _, relatedName := range sortedKeys(related) {
				relatedDef, ok := l.types[relatedName]
				if !ok {
					return nil, &LinkError{
						Kind: LinkErrorReferencedNamedTypeNotFound, TypeName: name, Detail: relatedName,
					}
				}
				relatedDef.collectRelatedTypes(related)
			}
			if len(related) == before {
				break
			}
		}
		def.collectRelatedTypes(related)

		fingerprints[name] = FingerprintFromHash(utils.WithHasher128(func(h hash.Hash) {
			for _, relatedName := range sortedKeys(related) {
				utils.HashHash128(h, partialHashes[relatedName])
			}
		}))
		l.logger.Debug("fingerprinted type", "name", name, "fingerprint", fingerprints[name].String())
	}

	set := &Set{
		schemasByName: make(map[string]Fingerprint, len(l.types)+len(l.aliases)),
		schemas:       make(map[Fingerprint]NamedType, len(l.types)),
	}
	for name, def := range l.types {
		fp := fingerprints[name]
		set.schemasByName[name] = fp
		set.schemas[fp] = def.toNamedType(l.types, fingerprints)
	}
	for alias, canonical := range l.aliases {
		set.schemasByName[alias] = fingerprints[canonical]
	}
	return set, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int { return cmp.Compare(a, b) })
	return keys
}

// normalizeTypeName trims whitespace so file-authored names compare cleanly.
func normalizeTypeName(name string) string {
	return strings.TrimSpace(name)
}
