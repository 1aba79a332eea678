package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/ports"
)

// Decode parses a document. The canonical shape keys exercises by name;
// the earliest files stored a list of records carrying a "name" field,
// which is migrated to the map shape here and nowhere else.
func Decode(data []byte) (*entities.Document, ports.DecodeInfo, error) {
	info := ports.DecodeInfo{Size: len(data)}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, info, fmt.Errorf("%w: %v", entities.ErrMalformedDocument, err)
	}
	if top == nil {
		return nil, info, entities.ErrMalformedDocument
	}

	raw, ok := top[entities.FieldExercises]
	if !ok {
		return nil, info, entities.ErrMissingExercises
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, info, entities.ErrMissingExercises
	}

	switch raw[0] {
	case '{':
		doc := entities.NewDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, info, err
		}
		return doc, info, nil
	case '[':
		doc, dropped, err := migrateLegacy(top, raw)
		if err != nil {
			return nil, info, err
		}
		info.Migrated = true
		info.Dropped = dropped
		return doc, info, nil
	default:
		return nil, info, entities.ErrMissingExercises
	}
}

// Encode renders a document as indented JSON with a trailing newline.
func Encode(doc *entities.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

func migrateLegacy(top map[string]json.RawMessage, raw json.RawMessage) (*entities.Document, []string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", entities.ErrMalformedDocument, err)
	}
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: empty legacy exercise list", entities.ErrMissingExercises)
	}

	doc := entities.NewDocument()
	var dropped []string

	for i, item := range items {
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &named); err != nil {
			dropped = append(dropped, fmt.Sprintf("#%d", i))
			continue
		}
		name := strings.TrimSpace(named.Name)
		if name == "" {
			dropped = append(dropped, fmt.Sprintf("#%d", i))
			continue
		}

		var ex entities.Exercise
		if err := json.Unmarshal(item, &ex); err != nil {
			dropped = append(dropped, name)
			continue
		}
		doc.Exercises[name] = &ex
	}

	for k, v := range top {
		if k == entities.FieldExercises {
			continue
		}
		doc.Meta[k] = v
	}

	return doc, dropped, nil
}
