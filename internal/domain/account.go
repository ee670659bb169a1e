package domain

import "context"

// AccountRecord is a decoded account response. Fields holds the JSON
// projection of the protobuf message using proto JSON field names.
type AccountRecord struct {
	Fields map[string]any
}

func (a *AccountRecord) section(name string) map[string]any {
	if a == nil || a.Fields == nil {
		return nil
	}
	m, _ := a.Fields[name].(map[string]any)
	return m
}

// BasicInfo returns the basicInfo section, or nil.
func (a *AccountRecord) BasicInfo() map[string]any { return a.section("basicInfo") }

// Section returns a named top-level section, or nil.
func (a *AccountRecord) Section(name string) map[string]any { return a.section(name) }

func (a *AccountRecord) basicString(key string) string {
	s, _ := a.BasicInfo()[key].(string)
	return s
}

func (a *AccountRecord) Nickname() string { return a.basicString("nickname") }
func (a *AccountRecord) Region() string   { return a.basicString("region") }

// QueryRequest is one encrypted account query against one region.
type QueryRequest struct {
	Identifier string
	Auxiliary  string
	Region     string
	Endpoint   string
}

// AccountQuerier performs exactly one upstream call per Query.
type AccountQuerier interface {
	Query(ctx context.Context, req QueryRequest) (*AccountRecord, error)
}

// Resolution is a successful region-fallback lookup.
type Resolution struct {
	Record          *AccountRecord
	EffectiveRegion string
	Attempts        int
}
