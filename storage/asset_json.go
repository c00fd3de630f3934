// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package storage

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/orderedmap"
	"github.com/pb33f/assetforge/schema"
)

// assetDoc is the .af file layout: the full persisted state of one asset.
type assetDoc struct {
	Id                       string              `json:"id"`
	Name                     string              `json:"name,omitempty"`
	Location                 string              `json:"location,omitempty"`
	Prototype                string              `json:"prototype,omitempty"`
	SchemaName               string              `json:"schema_name"`
	Schema                   string              `json:"schema"`
	ImportInfo               *importInfoDoc      `json:"import_info,omitempty"`
	FileReferenceOverrides   map[string]string   `json:"file_reference_overrides,omitempty"`
	Properties               map[string]valueDoc `json:"properties,omitempty"`
	NullOverrides            map[string]string   `json:"null_overrides,omitempty"`
	ReplaceModePaths         []string            `json:"replace_mode_paths,omitempty"`
	DynamicCollectionEntries map[string][]string `json:"dynamic_collection_entries,omitempty"`
}

type importInfoDoc struct {
	ImporterId     string   `json:"importer_id"`
	SourceFilePath string   `json:"source_file_path"`
	ImportableName string   `json:"importable_name,omitempty"`
	FileReferences []string `json:"file_references,omitempty"`
}

// RestoredAsset is the parsed contents of an .af document, ready to hand to
// an edit context's RestoreAsset.
type RestoredAsset struct {
	Id                       datamodel.AssetId
	Name                     datamodel.AssetName
	Location                 datamodel.AssetLocation
	Prototype                datamodel.AssetId
	Schema                   schema.Fingerprint
	ImportInfo               *datamodel.ImportInfo
	BuildInfo                datamodel.BuildInfo
	Properties               map[string]datamodel.Value
	NullOverrides            map[string]datamodel.NullOverride
	ReplaceModePaths         map[string]struct{}
	DynamicCollectionEntries map[string]*orderedmap.Set[uuid.UUID]
}

// SaveAsset serializes an asset to the .af document form.
func SaveAsset(id datamodel.AssetId, info *datamodel.DataAssetInfo) ([]byte, error) {
	properties, err := encodeValueMap(info.Properties())
	if err != nil {
		return nil, err
	}

	doc := assetDoc{
		Id:                       id.String(),
		Name:                     info.Name().String(),
		SchemaName:               info.Schema().Name(),
		Schema:                   info.Schema().Fingerprint().UUID().String(),
		Properties:               properties,
		NullOverrides:            encodeNullOverrides(info.PropertyNullOverrides()),
		DynamicCollectionEntries: encodeEntryMap(info.DynamicCollectionEntries()),
	}
	if !info.Location().IsRoot() {
		doc.Location = info.Location().PathNodeId.String()
	}
	if !info.Prototype().IsNull() {
		doc.Prototype = info.Prototype().String()
	}
	if importInfo := info.ImportInfo(); importInfo != nil {
		doc.ImportInfo = &importInfoDoc{
			ImporterId:     importInfo.ImporterId.String(),
			SourceFilePath: importInfo.SourceFilePath,
			ImportableName: importInfo.ImportableName,
			FileReferences: importInfo.FileReferences,
		}
	}
	if overrides := info.BuildInfo().FileReferenceOverrides; len(overrides) > 0 {
		doc.FileReferenceOverrides = make(map[string]string, len(overrides))
		for path, ref := range overrides {
			doc.FileReferenceOverrides[path] = ref.String()
		}
	}
	for path := range info.PropertiesInReplaceMode() {
		doc.ReplaceModePaths = append(doc.ReplaceModePaths, path)
	}
	slices.Sort(doc.ReplaceModePaths)

	return json.MarshalIndent(doc, "", "  ")
}

// LoadAsset parses an .af document.
func LoadAsset(set *schema.Set, data []byte) (*RestoredAsset, error) {
	var doc assetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed asset file: %w", err)
	}

	id, err := uuid.Parse(doc.Id)
	if err != nil {
		return nil, fmt.Errorf("asset file has no valid id: %w", err)
	}
	rec, err := resolveRecord(set, doc.Schema, doc.SchemaName)
	if err != nil {
		return nil, err
	}

	restored := &RestoredAsset{
		Id:     datamodel.AssetIdFromUUID(id),
		Name:   datamodel.AssetName(doc.Name),
		Schema: rec.Fingerprint(),
	}
	if doc.Location != "" {
		location, err := uuid.Parse(doc.Location)
		if err != nil {
			return nil, fmt.Errorf("asset %s has a malformed location: %w", doc.Id, err)
		}
		restored.Location = datamodel.NewAssetLocation(datamodel.AssetIdFromUUID(location))
	}
	if doc.Prototype != "" {
		prototype, err := uuid.Parse(doc.Prototype)
		if err != nil {
			return nil, fmt.Errorf("asset %s has a malformed prototype: %w", doc.Id, err)
		}
		restored.Prototype = datamodel.AssetIdFromUUID(prototype)
	}
	if doc.ImportInfo != nil {
		importerId, err := uuid.Parse(doc.ImportInfo.ImporterId)
		if err != nil {
			return nil, fmt.Errorf("asset %s has a malformed importer id: %w", doc.Id, err)
		}
		restored.ImportInfo = &datamodel.ImportInfo{
			ImporterId:     datamodel.ImporterId(importerId),
			SourceFilePath: doc.ImportInfo.SourceFilePath,
			ImportableName: doc.ImportInfo.ImportableName,
			FileReferences: doc.ImportInfo.FileReferences,
		}
	}
	if len(doc.FileReferenceOverrides) > 0 {
		restored.BuildInfo.FileReferenceOverrides = make(map[string]datamodel.AssetId, len(doc.FileReferenceOverrides))
		for path, encoded := range doc.FileReferenceOverrides {
			ref, err := uuid.Parse(encoded)
			if err != nil {
				return nil, fmt.Errorf("asset %s has a malformed file reference: %w", doc.Id, err)
			}
			restored.BuildInfo.FileReferenceOverrides[path] = datamodel.AssetIdFromUUID(ref)
		}
	}

	if restored.Properties, err = decodeValueMap(doc.Properties); err != nil {
		return nil, err
	}
	if restored.NullOverrides, err = decodeNullOverrides(doc.NullOverrides); err != nil {
		return nil, err
	}
	if restored.DynamicCollectionEntries, err = decodeEntryMap(doc.DynamicCollectionEntries); err != nil {
		return nil, err
	}
	restored.ReplaceModePaths = make(map[string]struct{}, len(doc.ReplaceModePaths))
	for _, path := range doc.ReplaceModePaths {
		restored.ReplaceModePaths[path] = struct{}{}
	}
	return restored, nil
}
