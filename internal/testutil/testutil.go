// Package testutil holds gateway device fixtures shared by package tests.
package testutil

import (
	"embed"
	"encoding/json"
	"testing"

	"onecta_bridge/internal/document"
	"onecta_bridge/internal/types"
)

//go:embed testdata/*.json
var fixtures embed.FS

// Fixture device ids.
const (
	DX4ID      = "6f944461-08cb-4fee-979c-710ff66cea77"
	AlthermaID = "1ece521b-5401-4a42-acce-6f76fba246aa"
)

// Raw returns the bytes of a fixture by base name (without .json).
func Raw(t testing.TB, name string) []byte {
	t.Helper()
	b, err := fixtures.ReadFile("testdata/" + name + ".json")
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return b
}

// Document decodes a fresh copy of a fixture.
func Document(t testing.TB, name string) document.Document {
	t.Helper()
	var doc document.Document
	if err := json.Unmarshal(Raw(t, name), &doc); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return doc
}

// Snapshot decodes a fixture as a gateway snapshot.
func Snapshot(t testing.TB, name string) types.Snapshot {
	t.Helper()
	return types.Snapshot(Document(t, name))
}

// DeviceList returns the JSON array the gateway-devices endpoint would serve for the fixtures.
func DeviceList(t testing.TB, names ...string) []byte {
	t.Helper()
	list := make([]json.RawMessage, 0, len(names))
	for _, n := range names {
		list = append(list, Raw(t, n))
	}
	b, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("encode device list: %v", err)
	}
	return b
}
