package mqtt

import "strings"

const (
	suffixState   = "state"
	suffixCommand = "set"
	suffixStatus  = "status"
)

// Topics builds the bridge topic tree under a configurable prefix:
//
//	<prefix>/status              bridge availability (retained, LWT)
//	<prefix>/<unique_id>/state   entity state JSON (retained)
//	<prefix>/<unique_id>/set     entity commands
type Topics struct {
	Prefix string
}

// Status returns the availability topic.
func (t Topics) Status() string {
	return t.Prefix + "/" + suffixStatus
}

// State returns the state topic of an entity.
func (t Topics) State(uniqueID string) string {
	return t.Prefix + "/" + uniqueID + "/" + suffixState
}

// Command returns the command topic of an entity.
func (t Topics) Command(uniqueID string) string {
	return t.Prefix + "/" + uniqueID + "/" + suffixCommand
}

// AllCommands returns the wildcard subscription for every entity command topic.
func (t Topics) AllCommands() string {
	return t.Prefix + "/+/" + suffixCommand
}

// ParseCommand extracts the unique id from a command topic.
func (t Topics) ParseCommand(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/"+suffixCommand)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
