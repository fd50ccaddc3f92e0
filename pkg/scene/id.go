package scene

import "github.com/google/uuid"

// idNamespace scopes name-derived node IDs.
var idNamespace = uuid.MustParse("6f1c2b9e-4f0a-5d37-9a51-2c8e7d0b4a13")

// NodeID uniquely identifies a node.
type NodeID uuid.UUID

// ZeroID is the unset ID.
var ZeroID NodeID

// NewNodeID returns a fresh random ID.
func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

// NodeIDFromName returns a stable ID derived from name, so that scripts
// evaluated twice yield identical IDs.
func NodeIDFromName(name string) NodeID {
	return NodeID(uuid.NewSHA1(idNamespace, []byte(name)))
}

// String returns the canonical UUID form.
func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first eight hex digits, for logs and messages.
func (id NodeID) Short() string {
	return id.String()[:8]
}

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Compare orders IDs bytewise. It returns -1, 0 or 1.
func (id NodeID) Compare(other NodeID) int {
	for i := range id {
		switch {
		case id[i] < other[i]:
			return -1
		case id[i] > other[i]:
			return 1
		}
	}
	return 0
}

// MarshalText encodes the ID in its canonical form.
func (id NodeID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes an ID in any form accepted by uuid.Parse.
func (id *NodeID) UnmarshalText(text []byte) error {
	u, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}
