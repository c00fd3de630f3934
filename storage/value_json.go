// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package storage implements the stable on-disk forms of authored data:
// .af asset documents, .if import data, and the JSON value encoding shared by
// both. Encodings are self-describing (every value carries its kind) and
// deterministic (object keys always serialize sorted).
package storage

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
)

// valueDoc is the serialized form of one property value.
type valueDoc struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
	Null  *bool           `json:"null,omitempty"`
}

func encodeValue(v datamodel.Value) (valueDoc, error) {
	doc := valueDoc{Type: v.Kind().String()}
	var inner any
	switch v.Kind() {
	case schema.KindBoolean:
		inner, _ = v.AsBoolean()
	case schema.KindI32:
		inner, _ = v.AsI32()
	case schema.KindI64:
		inner, _ = v.AsI64()
	case schema.KindU32:
		inner, _ = v.AsU32()
	case schema.KindU64:
		inner, _ = v.AsU64()
	case schema.KindF32:
		inner, _ = v.AsF32()
	case schema.KindF64:
		inner, _ = v.AsF64()
	case schema.KindBytes:
		b, _ := v.AsBytes()
		inner = base64.StdEncoding.EncodeToString(b)
	case schema.KindFixed:
		b, _ := v.AsFixed()
		inner = base64.StdEncoding.EncodeToString(b)
	case schema.KindString:
		inner, _ = v.AsString()
	case schema.KindEnum:
		inner, _ = v.AsEnum()
	case schema.KindAssetRef:
		ref, _ := v.AsAssetRef()
		inner = ref.String()
	case schema.KindNullable:
		_, isNull, _ := v.AsNullable()
		doc.Null = &isNull
		return doc, nil
	default:
		return valueDoc{}, fmt.Errorf("value of kind %s cannot be serialized", v.Kind())
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return valueDoc{}, err
	}
	doc.Value = raw
	return doc, nil
}

func decodeValue(doc valueDoc) (datamodel.Value, error) {
	switch doc.Type {
	case "Boolean":
		var v bool
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.BooleanValue(v), nil
	case "I32":
		var v int32
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.I32Value(v), nil
	case "I64":
		var v int64
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.I64Value(v), nil
	case "U32":
		var v uint32
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.U32Value(v), nil
	case "U64":
		var v uint64
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.U64Value(v), nil
	case "F32":
		var v float32
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.F32Value(v), nil
	case "F64":
		var v float64
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.F64Value(v), nil
	case "Bytes", "Fixed":
		var encoded string
		if err := json.Unmarshal(doc.Value, &encoded); err != nil {
			return datamodel.Value{}, err
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return datamodel.Value{}, err
		}
		if doc.Type == "Fixed" {
			return datamodel.FixedValue(raw), nil
		}
		return datamodel.BytesValue(raw), nil
	case "String":
		var v string
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.StringValue(v), nil
	case "Enum":
		var v string
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.EnumValue(v), nil
	case "AssetRef":
		var encoded string
		if err := json.Unmarshal(doc.Value, &encoded); err != nil {
			return datamodel.Value{}, err
		}
		id, err := uuid.Parse(encoded)
		if err != nil {
			return datamodel.Value{}, err
		}
		return datamodel.AssetRefValue(datamodel.AssetIdFromUUID(id)), nil
	case "Nullable":
		if doc.Null != nil && *doc.Null {
			return datamodel.NullValue(), nil
		}
		return datamodel.NonNullValue(), nil
	}
	return datamodel.Value{}, fmt.Errorf("unknown serialized value kind %q", doc.Type)
}

func encodeValueMap(in map[string]datamodel.Value) (map[string]valueDoc, error) {
	out := make(map[string]valueDoc, len(in))
	for path, value := range in {
		doc, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", path, err)
		}
		out[path] = doc
	}
	return out, nil
}

func decodeValueMap(in map[string]valueDoc) (map[string]datamodel.Value, error) {
	out := make(map[string]datamodel.Value, len(in))
	for path, doc := range in {
		value, err := decodeValue(doc)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", path, err)
		}
		out[path] = value
	}
	return out, nil
}

func encodeNullOverrides(in map[string]datamodel.NullOverride) map[string]string {
	out := make(map[string]string, len(in))
	for path, override := range in {
		out[path] = override.String()
	}
	return out
}

func decodeNullOverrides(in map[string]string) (map[string]datamodel.NullOverride, error) {
	out := make(map[string]datamodel.NullOverride, len(in))
	for path, encoded := range in {
		switch encoded {
		case "SetNull":
			out[path] = datamodel.NullOverrideSetNull
		case "SetNonNull":
			out[path] = datamodel.NullOverrideSetNonNull
		default:
			return nil, fmt.Errorf("null override %s: unknown state %q", path, encoded)
		}
	}
	return out, nil
}
