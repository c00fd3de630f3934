// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Schema definition files are arrays of named type definitions:
//
//	- type: record
//	  name: Vec3
//	  fields:
//	    - name: x
//	      type: f32
//	- type: enum
//	  name: BlendMode
//	  symbols: [opaque, alpha]
//	- type: fixed
//	  name: Guid
//	  length: 16
//
// Field types are either a string (a primitive name or a named type) or a
// mapping for containers:
//
//	type: { name: dynamic_array, inner_type: Vec3 }
//	type: { name: map, key_type: string, value_type: Vec3 }
//	type: { name: nullable, inner_type: Vec3 }
//	type: { name: static_array, inner_type: f32, length: 4 }
//	type: { name: asset_ref, inner_type: Material }

type schemaFileField struct {
	Name    string    `yaml:"name"`
	Aliases []string  `yaml:"aliases"`
	Type    yaml.Node `yaml:"type"`
	Markup  struct {
		DisplayName string   `yaml:"display_name"`
		Description string   `yaml:"description"`
		Category    string   `yaml:"category"`
		ClampMin    *float64 `yaml:"clamp_min"`
		ClampMax    *float64 `yaml:"clamp_max"`
		UIMin       *float64 `yaml:"ui_min"`
		UIMax       *float64 `yaml:"ui_max"`
	} `yaml:"markup"`
}

type schemaFileEntry struct {
	Type    string            `yaml:"type"`
	Name    string            `yaml:"name"`
	Aliases []string          `yaml:"aliases"`
	Fields  []schemaFileField `yaml:"fields"`
	Symbols []yaml.Node       `yaml:"symbols"`
	Length  int               `yaml:"length"`
	Markup  struct {
		DisplayName string   `yaml:"display_name"`
		Tags        []string `yaml:"tags"`
	} `yaml:"markup"`
}

var primitiveTypeNames = map[string]Kind{
	"bool":   KindBoolean,
	"i32":    KindI32,
	"i64":    KindI64,
	"u32":    KindU32,
	"u64":    KindU64,
	"f32":    KindF32,
	"f64":    KindF64,
	"bytes":  KindBytes,
	"string": KindString,
}

func parseSchemaFile(data []byte, source string) ([]*defNamedType, error) {
	var entries []schemaFileEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("[%s] schema file must be an array of type definitions: %w", source, err)
	}

	defs := make([]*defNamedType, 0, len(entries))
	for _, entry := range entries {
		name := normalizeTypeName(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("[%s] every type definition must have a name", source)
		}
		switch entry.Type {
		case "record":
			def := &defNamedType{
				kind:    KindRecord,
				name:    name,
				aliases: entry.Aliases,
			}
			def.markup.DisplayName = entry.Markup.DisplayName
			def.markup.Tags = entry.Markup.Tags
			for _, field := range entry.Fields {
				if field.Name == "" {
					return nil, fmt.Errorf("[%s] record %s has a field with no name", source, name)
				}
				ref, err := parseTypeRef(&field.Type, source)
				if err != nil {
					return nil, err
				}
				def.fields = append(def.fields, defField{
					name:    field.Name,
					aliases: field.Aliases,
					ref:     ref,
					markup: FieldMarkup{
						DisplayName: field.Markup.DisplayName,
						Description: field.Markup.Description,
						Category:    field.Markup.Category,
						ClampMin:    field.Markup.ClampMin,
						ClampMax:    field.Markup.ClampMax,
						UIMin:       field.Markup.UIMin,
						UIMax:       field.Markup.UIMax,
					},
				})
			}
			defs = append(defs, def)

		case "enum":
			def := &defNamedType{
				kind:    KindEnum,
				name:    name,
				aliases: entry.Aliases,
			}
			for _, symbolNode := range entry.Symbols {
				symbol, err := parseEnumSymbol(&symbolNode, source, name)
				if err != nil {
					return nil, err
				}
				def.symbols = append(def.symbols, symbol)
			}
			defs = append(defs, def)

		case "fixed":
			if entry.Length <= 0 {
				return nil, fmt.Errorf("[%s] fixed type %s must have a positive length", source, name)
			}
			defs = append(defs, &defNamedType{
				kind:    KindFixed,
				name:    name,
				aliases: entry.Aliases,
				length:  entry.Length,
			})

		default:
			return nil, fmt.Errorf("[%s] unknown type definition kind %q for %s", source, entry.Type, name)
		}
	}
	return defs, nil
}

// parseEnumSymbol accepts either a bare symbol name or a mapping with name
// and aliases.
func parseEnumSymbol(node *yaml.Node, source, enumName string) (defSymbol, error) {
	if node.Kind == yaml.ScalarNode {
		return defSymbol{name: node.Value}, nil
	}
	var decoded struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	}
	if err := node.Decode(&decoded); err != nil || decoded.Name == "" {
		return defSymbol{}, fmt.Errorf("[%s] enum %s symbols must be strings or mappings with a name", source, enumName)
	}
	return defSymbol{name: decoded.Name, aliases: decoded.Aliases}, nil
}

func parseTypeRef(node *yaml.Node, source string) (TypeRef, error) {
	if node == nil || node.Kind == 0 {
		return TypeRef{}, fmt.Errorf("[%s] field is missing a type", source)
	}

	if node.Kind == yaml.ScalarNode {
		name := normalizeTypeName(node.Value)
		if kind, ok := primitiveTypeNames[name]; ok {
			return TypeRef{kind: kind}, nil
		}
		if name == "" {
			return TypeRef{}, fmt.Errorf("[%s] type references must not be empty", source)
		}
		return Named(name), nil
	}

	if node.Kind != yaml.MappingNode {
		return TypeRef{}, fmt.Errorf("[%s] type references must be a string or a mapping", source)
	}

	var decoded struct {
		Name      string    `yaml:"name"`
		InnerType yaml.Node `yaml:"inner_type"`
		KeyType   yaml.Node `yaml:"key_type"`
		ValueType yaml.Node `yaml:"value_type"`
		Length    int       `yaml:"length"`
	}
	if err := node.Decode(&decoded); err != nil {
		return TypeRef{}, fmt.Errorf("[%s] malformed type reference: %w", source, err)
	}

	switch decoded.Name {
	case "nullable":
		inner, err := parseTypeRef(&decoded.InnerType, source)
		if err != nil {
			return TypeRef{}, err
		}
		return NullableRef(inner), nil
	case "static_array":
		inner, err := parseTypeRef(&decoded.InnerType, source)
		if err != nil {
			return TypeRef{}, err
		}
		if decoded.Length <= 0 {
			return TypeRef{}, fmt.Errorf("[%s] static_array must have a positive length", source)
		}
		return StaticArrayRef(inner, decoded.Length), nil
	case "dynamic_array":
		inner, err := parseTypeRef(&decoded.InnerType, source)
		if err != nil {
			return TypeRef{}, err
		}
		return DynamicArrayRef(inner), nil
	case "map":
		key, err := parseTypeRef(&decoded.KeyType, source)
		if err != nil {
			return TypeRef{}, err
		}
		value, err := parseTypeRef(&decoded.ValueType, source)
		if err != nil {
			return TypeRef{}, err
		}
		return MapRef(key, value), nil
	case "asset_ref":
		inner, err := parseTypeRef(&decoded.InnerType, source)
		if err != nil {
			return TypeRef{}, err
		}
		if inner.kind != kindNamedRef {
			return TypeRef{}, fmt.Errorf("[%s] asset_ref inner_type must be a named type", source)
		}
		return RefTo(inner.typeName), nil
	}
	return TypeRef{}, fmt.Errorf("[%s] unknown compound type %q", source, decoded.Name)
}
