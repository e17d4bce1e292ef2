package utils

import "github.com/google/uuid"

// TraceIDGenerator produces trace identifiers for sync runs and API
// requests. Prefers time-ordered UUIDv7 so log lines sort naturally.
type TraceIDGenerator struct {
}

func NewTraceIDGenerator() *TraceIDGenerator {
	return &TraceIDGenerator{}
}

func (g *TraceIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
