package mapper

import (
	"strings"

	"onecta_bridge/internal/document"
)

// Characteristic is a named property of one management point. It references
// the live node inside the device document; it never copies it.
type Characteristic struct {
	Name                string
	EmbeddedID          string
	ManagementPointType string
	node                map[string]any
}

// Node returns the characteristic object as it sits in the document.
func (c Characteristic) Node() document.Result {
	if c.node == nil {
		return document.Absent
	}
	return document.Found(c.node)
}

// Value returns the characteristic's "value" wrapper.
func (c Characteristic) Value() document.Result {
	return c.Node().Get(KeyValue)
}

// Settable reports the characteristic's settable flag. A missing flag counts as settable.
func (c Characteristic) Settable() bool {
	v, ok := c.Node().Get(KeySettable).Bool()
	return !ok || v
}

// AllowedValues returns the characteristic's "values" list, used by scalar
// characteristics such as onOffMode and operationMode.
func (c Characteristic) AllowedValues() []string {
	vals, _ := c.Node().Get(KeyValues).Strings()
	return vals
}

// ManagementPoint is one entry of a device's managementPoints list.
type ManagementPoint struct {
	EmbeddedID string
	Type       string
	node       map[string]any
}

// Characteristic returns the named characteristic of this management point.
func (mp ManagementPoint) Characteristic(name string) (Characteristic, bool) {
	raw, ok := mp.node[name].(map[string]any)
	if !ok {
		return Characteristic{}, false
	}
	return Characteristic{
		Name:                name,
		EmbeddedID:          mp.EmbeddedID,
		ManagementPointType: mp.Type,
		node:                raw,
	}, true
}

// CharacteristicNames returns the names of all object-valued members of the point,
// in sorted order.
func (mp ManagementPoint) CharacteristicNames() []string {
	names := make([]string, 0, len(mp.node))
	for _, k := range document.Found(mp.node).Keys() {
		if _, ok := mp.node[k].(map[string]any); ok {
			names = append(names, k)
		}
	}
	return names
}

// ManagementPoints lists the management points of a document in document order.
// Entries without a string embeddedId and managementPointType are skipped.
func ManagementPoints(doc document.Document) []ManagementPoint {
	list, ok := document.Lookup(doc, KeyManagementPoints).Objects()
	if !ok {
		return nil
	}
	out := make([]ManagementPoint, 0, len(list))
	for _, raw := range list {
		id, okID := raw[KeyEmbeddedID].(string)
		typ, okType := raw[KeyManagementPointType].(string)
		if !okID || !okType {
			continue
		}
		out = append(out, ManagementPoint{EmbeddedID: id, Type: typ, node: raw})
	}
	return out
}

// FindManagementPoint returns the first point matching (embeddedID, managementPointType).
func FindManagementPoint(doc document.Document, embeddedID, managementPointType string) (ManagementPoint, bool) {
	for _, mp := range ManagementPoints(doc) {
		if mp.EmbeddedID == embeddedID && mp.Type == managementPointType {
			return mp, true
		}
	}
	return ManagementPoint{}, false
}

// Find locates a characteristic. Missing managementPoints, no matching point,
// a missing characteristic or any malformed nesting all report absence.
func Find(doc document.Document, embeddedID, managementPointType, characteristic string) (Characteristic, bool) {
	mp, ok := FindManagementPoint(doc, embeddedID, managementPointType)
	if !ok {
		return Characteristic{}, false
	}
	return mp.Characteristic(characteristic)
}

// DeviceName derives a display name: the name characteristic of the first
// point that has one, else the device model, else the fallback.
func DeviceName(doc document.Document, fallback string) string {
	for _, mp := range ManagementPoints(doc) {
		c, ok := mp.Characteristic(CharName)
		if !ok {
			continue
		}
		if name, ok := c.Value().String(); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	if model, ok := document.Lookup(doc, KeyDeviceModel).String(); ok {
		return Safe(model, fallback)
	}
	return fallback
}

// CloudConnected reports the device's isCloudConnectionUp flag. A document
// without the flag is treated as connected.
func CloudConnected(doc document.Document) bool {
	up, ok := document.Lookup(doc, KeyIsCloudConnectionUp, KeyValue).Bool()
	return !ok || up
}

// Safe returns the trimmed value, or fallback when it is empty.
func Safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
