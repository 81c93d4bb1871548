package models

// ProofStep is one sibling hash on the path from a leaf to the root.
type ProofStep struct {
	Hash     string `json:"hash"`
	Position string `json:"position"` // "left" | "right"
}

// MerkleProof lets a caller verify that one audit entry is part of the
// published trail without fetching the whole trail.
type MerkleProof struct {
	LeafHash string      `json:"leaf_hash"`
	Root     string      `json:"root"`
	Index    int         `json:"index"`
	Proof    []ProofStep `json:"proof"`
}
