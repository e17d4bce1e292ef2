package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmvelichko/refsync/models"
)

// Wire shapes for the versioned object endpoints. Every object arrives
// as an envelope of key, version and a type-specific data payload.

type wireGroup struct {
	ID      int64 `json:"id"`
	Version int   `json:"version"`
	Data    struct {
		Name           string `json:"name"`
		LibraryEditing string `json:"libraryEditing"`
		FileEditing    string `json:"fileEditing"`
	} `json:"data"`
}

func (g wireGroup) toLibrary() models.Library {
	return models.Library{
		ID:              models.GroupLibrary(g.ID),
		Name:            g.Data.Name,
		Version:         g.Version,
		CanEditMetadata: g.Data.LibraryEditing != "none",
		CanEditFiles:    g.Data.FileEditing != "none",
	}
}

type wireCollection struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Data    struct {
		Name             string          `json:"name"`
		ParentCollection json.RawMessage `json:"parentCollection"`
		Deleted          int             `json:"deleted"`
	} `json:"data"`
}

type wireSearch struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Data    struct {
		Name       string          `json:"name"`
		Conditions json.RawMessage `json:"conditions"`
	} `json:"data"`
}

type wireItem struct {
	Key     string          `json:"key"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// itemData holds the structural part of an item payload. Everything else
// in the data object is a free-form field.
type itemData struct {
	ItemType     string           `json:"itemType"`
	DateAdded    time.Time        `json:"dateAdded"`
	DateModified time.Time        `json:"dateModified"`
	Creators     []models.Creator `json:"creators"`
	Tags         []models.Tag     `json:"tags"`
	Collections  []string         `json:"collections"`
	ParentItem   string           `json:"parentItem"`
	Deleted      int              `json:"deleted"`
}

// structuralItemKeys are the data keys consumed by itemData; the rest of
// the payload lands in Item.Fields.
var structuralItemKeys = map[string]bool{
	"itemType": true, "dateAdded": true, "dateModified": true,
	"creators": true, "tags": true, "collections": true,
	"parentItem": true, "deleted": true, "key": true, "version": true,
}

func decodeBatch(body []byte, library models.LibraryIdentifier, batch *models.ObjectBatch) error {
	switch batch.Type {
	case models.ObjectCollection:
		var wire []wireCollection
		if err := json.Unmarshal(body, &wire); err != nil {
			return fmt.Errorf("decode collections response: %w", err)
		}
		batch.Collections = make([]models.Collection, 0, len(wire))
		for _, w := range wire {
			batch.Collections = append(batch.Collections, collectionFromWire(w, library))
		}

	case models.ObjectSearch:
		var wire []wireSearch
		if err := json.Unmarshal(body, &wire); err != nil {
			return fmt.Errorf("decode searches response: %w", err)
		}
		batch.Searches = make([]models.SavedSearch, 0, len(wire))
		for _, w := range wire {
			batch.Searches = append(batch.Searches, models.SavedSearch{
				Key:        w.Key,
				LibraryID:  library,
				Name:       w.Data.Name,
				Version:    w.Version,
				Conditions: w.Data.Conditions,
			})
		}

	case models.ObjectItem:
		var wire []wireItem
		if err := json.Unmarshal(body, &wire); err != nil {
			return fmt.Errorf("decode items response: %w", err)
		}
		batch.Items = make([]models.Item, 0, len(wire))
		for _, w := range wire {
			item, err := itemFromWire(w, library)
			if err != nil {
				return err
			}
			batch.Items = append(batch.Items, item)
		}

	default:
		return fmt.Errorf("object type %q is not fetchable", batch.Type)
	}

	return nil
}

func collectionFromWire(w wireCollection, library models.LibraryIdentifier) models.Collection {
	c := models.Collection{
		Key:       w.Key,
		LibraryID: library,
		Name:      w.Data.Name,
		Version:   w.Version,
		Trashed:   w.Data.Deleted == 1,
	}

	// parentCollection is either false (root) or a key string.
	var parent string
	if err := json.Unmarshal(w.Data.ParentCollection, &parent); err == nil && parent != "" {
		c.ParentKey = &parent
	}

	return c
}

func itemFromWire(w wireItem, library models.LibraryIdentifier) (models.Item, error) {
	var structural itemData
	if err := json.Unmarshal(w.Data, &structural); err != nil {
		return models.Item{}, fmt.Errorf("decode item %s: %w", w.Key, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Data, &raw); err != nil {
		return models.Item{}, fmt.Errorf("decode item %s fields: %w", w.Key, err)
	}

	fields := make(map[string]string)
	for k, v := range raw {
		if structuralItemKeys[k] {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			fields[k] = s
		}
	}

	item := models.Item{
		Key:          w.Key,
		LibraryID:    library,
		Type:         structural.ItemType,
		Version:      w.Version,
		DateAdded:    structural.DateAdded,
		DateModified: structural.DateModified,
		Fields:       fields,
		Creators:     structural.Creators,
		Tags:         structural.Tags,
		Collections:  structural.Collections,
		Trashed:      structural.Deleted == 1,
	}
	if structural.ParentItem != "" {
		parent := structural.ParentItem
		item.ParentKey = &parent
	}

	return item, nil
}

func itemToWire(it models.Item) wireItem {
	payload := make(map[string]any, len(it.Fields)+8)
	for k, v := range it.Fields {
		payload[k] = v
	}
	payload["itemType"] = it.Type
	payload["dateAdded"] = it.DateAdded
	payload["dateModified"] = it.DateModified
	if len(it.Creators) > 0 {
		payload["creators"] = it.Creators
	}
	if len(it.Tags) > 0 {
		payload["tags"] = it.Tags
	}
	if len(it.Collections) > 0 {
		payload["collections"] = it.Collections
	}
	if it.ParentKey != nil {
		payload["parentItem"] = *it.ParentKey
	}
	if it.Trashed {
		payload["deleted"] = 1
	}

	data, _ := json.Marshal(payload)
	return wireItem{Key: it.Key, Version: it.Version, Data: data}
}
