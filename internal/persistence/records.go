package persistence

import "github.com/justlep/nedb/internal/model"

// Marker keys used in persisted records to distinguish tombstones and
// index-lifecycle events from live documents.
const (
	deletedMarkerKey      = "$$deleted"
	indexCreatedMarkerKey = "$$indexCreated"
	indexRemovedMarkerKey = "$$indexRemoved"
)

func newDeletedRecord(id string) model.Doc {
	return model.Doc{"_id": id, deletedMarkerKey: true}
}

func newIndexCreatedRecord(spec IndexSpec) model.Doc {
	payload := model.Doc{
		"fieldName": spec.FieldName,
		"unique":    spec.Unique,
		"sparse":    spec.Sparse,
	}
	if spec.ExpireAfterSeconds != nil {
		payload["expireAfterSeconds"] = *spec.ExpireAfterSeconds
	}
	return model.Doc{indexCreatedMarkerKey: payload}
}

func newIndexRemovedRecord(fieldName string) model.Doc {
	return model.Doc{indexRemovedMarkerKey: fieldName}
}

func asIndexSpec(payload any) (IndexSpec, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return IndexSpec{}, false
	}
	fieldName, _ := m["fieldName"].(string)
	if fieldName == "" {
		return IndexSpec{}, false
	}
	spec := IndexSpec{
		FieldName: fieldName,
		Unique:    asBool(m["unique"]),
		Sparse:    asBool(m["sparse"]),
	}
	if seconds, ok := model.AsFloat64(m["expireAfterSeconds"]); ok {
		spec.ExpireAfterSeconds = &seconds
	}
	return spec, true
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
