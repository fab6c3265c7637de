package realtime

import "time"

// Snapshot is one JSON document as held by the OT store: identity, the OT
// subtype tag, the version sequence number and the document data.
type Snapshot struct {
	ID         string         `json:"id" bson:"_id"`
	Collection string         `json:"collection" bson:"-"`
	Type       string         `json:"type" bson:"_type"`
	Version    int            `json:"v" bson:"_v"`
	Data       map[string]any `json:"data" bson:"data"`
	UpdatedAt  time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// Json0Type is the OT subtype tag of JSON documents.
const Json0Type = "http://sharejs.org/types/JSONv0"

// Actor is the identity submitting a mutation. Roles are the roles the host
// resolved for the actor on the target document, if any.
type Actor struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles,omitempty"`
}

// HasRole reports whether role is among the actor's roles.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
