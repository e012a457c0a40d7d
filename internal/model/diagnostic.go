package model

import "time"

// Diagnostic records a swallowed failure so operators can tell a healthy
// source with zero volume apart from a broken one.
type Diagnostic struct {
	ChainID    uint64    `json:"chain_id"`
	Component  string    `json:"component"`
	Subject    string    `json:"subject"`
	Error      string    `json:"error"`
	ObservedAt time.Time `json:"observed_at"`
}
