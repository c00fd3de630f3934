// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package storage

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/orderedmap"
	"github.com/pb33f/assetforge/schema"
)

// singleObjectDoc is the .if file layout: one self-contained record instance.
type singleObjectDoc struct {
	SchemaName               string              `json:"schema_name"`
	Schema                   string              `json:"schema"`
	ContentsHash             string              `json:"contents_hash"`
	Properties               map[string]valueDoc `json:"properties,omitempty"`
	NullOverrides            map[string]string   `json:"null_overrides,omitempty"`
	DynamicCollectionEntries map[string][]string `json:"dynamic_collection_entries,omitempty"`
}

// SaveSingleObject serializes an object to the .if document form. Output is
// byte-stable for equal objects, so unchanged import data can be detected by
// byte comparison.
func SaveSingleObject(obj *datamodel.SingleObject) ([]byte, error) {
	properties, err := encodeValueMap(obj.Properties())
	if err != nil {
		return nil, err
	}
	doc := singleObjectDoc{
		SchemaName:               obj.Schema().Name(),
		Schema:                   obj.Schema().Fingerprint().UUID().String(),
		ContentsHash:             fmt.Sprintf("%016x", obj.Hash()),
		Properties:               properties,
		NullOverrides:            encodeNullOverrides(obj.PropertyNullOverrides()),
		DynamicCollectionEntries: encodeEntryMap(obj.DynamicCollectionEntries()),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// LoadSingleObject rebuilds an object from its .if document. The schema is
// resolved by fingerprint first, falling back to name so data written by an
// older schema revision still loads when the type was aliased forward.
func LoadSingleObject(set *schema.Set, data []byte) (*datamodel.SingleObject, uint64, error) {
	var doc singleObjectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("malformed import data: %w", err)
	}

	rec, err := resolveRecord(set, doc.Schema, doc.SchemaName)
	if err != nil {
		return nil, 0, err
	}

	properties, err := decodeValueMap(doc.Properties)
	if err != nil {
		return nil, 0, err
	}
	nullOverrides, err := decodeNullOverrides(doc.NullOverrides)
	if err != nil {
		return nil, 0, err
	}
	entries, err := decodeEntryMap(doc.DynamicCollectionEntries)
	if err != nil {
		return nil, 0, err
	}

	obj := datamodel.RestoreSingleObject(rec, properties, nullOverrides, entries)
	return obj, obj.Hash(), nil
}

func resolveRecord(set *schema.Set, fingerprintText, name string) (*schema.Record, error) {
	if fingerprintText != "" {
		if id, err := uuid.Parse(fingerprintText); err == nil {
			if rec, ok := set.Record(schema.FingerprintFromUUID(id)); ok {
				return rec, nil
			}
		}
	}
	if nt, ok := set.FindNamedType(name); ok {
		if rec, isRecord := schema.AsRecord(nt); isRecord {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("schema %s (%s): %w", name, fingerprintText, datamodel.ErrSchemaNotFound)
}

func encodeEntryMap(in map[string]*orderedmap.Set[uuid.UUID]) map[string][]string {
	out := make(map[string][]string, len(in))
	for path, entries := range in {
		items := entries.Items()
		encoded := make([]string, len(items))
		for i, entry := range items {
			encoded[i] = entry.String()
		}
		out[path] = encoded
	}
	return out
}

func decodeEntryMap(in map[string][]string) (map[string]*orderedmap.Set[uuid.UUID], error) {
	out := make(map[string]*orderedmap.Set[uuid.UUID], len(in))
	for path, encoded := range in {
		entries := orderedmap.NewSet[uuid.UUID]()
		for _, text := range encoded {
			entry, err := uuid.Parse(text)
			if err != nil {
				return nil, fmt.Errorf("entry set %s: %w", path, err)
			}
			if !entries.TryInsertAtEnd(entry) {
				return nil, fmt.Errorf("entry set %s: %w", path, datamodel.ErrDuplicateEntry)
			}
		}
		out[path] = entries
	}
	return out, nil
}
