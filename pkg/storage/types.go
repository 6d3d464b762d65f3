package storage

import (
	"time"

	"github.com/google/uuid"
)

// Endpoint purposes with specialized dispatch semantics. Any other value
// (or none) falls through to generic CRUD keyed by HTTP method.
const (
	PurposeLogin    = "login"
	PurposeRegister = "register"
	PurposeCreate   = "create"
	PurposeRead     = "read"
	PurposeUpdate   = "update"
	PurposeDelete   = "delete"
	PurposeList     = "list"
)

// Field types carried by endpoint definitions. These are descriptive
// metadata for authors and validators; the storage layer does not enforce
// them.
const (
	FieldTypeString   = "String"
	FieldTypeNumber   = "Number"
	FieldTypeBoolean  = "Boolean"
	FieldTypeDate     = "Date"
	FieldTypeObjectID = "ObjectId"
	FieldTypeArray    = "Array"
	FieldTypeObject   = "Object"
	FieldTypeMixed    = "Mixed"
)

// FieldSpec describes one declared field of an endpoint definition
type FieldSpec struct {
	Name       string      `json:"name" yaml:"name"`
	Type       string      `json:"type" yaml:"type"`
	Required   bool        `json:"required" yaml:"required"`
	Unique     bool        `json:"unique" yaml:"unique"`
	Default    interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	Validation string      `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// EndpointDefinition is a persisted, declarative description of one HTTP
// route: method, path, target collection, field schema, auth requirement,
// and semantic purpose.
type EndpointDefinition struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name" yaml:"name"`
	Description      string      `json:"description,omitempty" yaml:"description,omitempty"`
	Method           string      `json:"method" yaml:"method"`
	Path             string      `json:"path" yaml:"path"`
	Purpose          string      `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Auth             bool        `json:"auth" yaml:"auth"`
	CollectionName   string      `json:"collectionName" yaml:"collectionName"`
	Fields           []FieldSpec `json:"fields,omitempty" yaml:"fields,omitempty"`
	CreateCollection bool        `json:"createCollection" yaml:"createCollection"`
}

// Project owns a set of endpoint definitions and a display name
type Project struct {
	ID          string               `json:"id" yaml:"id"`
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	OwnerID     string               `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`
	Endpoints   []EndpointDefinition `json:"endpoints" yaml:"endpoints"`
	Collections []string             `json:"collections,omitempty" yaml:"collections,omitempty"`
	CreatedAt   time.Time            `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" yaml:"updatedAt"`
}

// FindEndpoint returns the embedded definition with the given ID, or nil
func (p *Project) FindEndpoint(id string) *EndpointDefinition {
	for i := range p.Endpoints {
		if p.Endpoints[i].ID == id {
			return &p.Endpoints[i]
		}
	}
	return nil
}

// Clone returns a copy whose Endpoints and Collections do not alias the
// receiver's backing arrays, so handing a project across a store boundary
// never exposes shared mutable state.
func (p *Project) Clone() *Project {
	cp := *p
	if p.Endpoints != nil {
		cp.Endpoints = make([]EndpointDefinition, len(p.Endpoints))
		copy(cp.Endpoints, p.Endpoints)
		for i := range cp.Endpoints {
			if fields := p.Endpoints[i].Fields; fields != nil {
				cp.Endpoints[i].Fields = append([]FieldSpec(nil), fields...)
			}
		}
	}
	if p.Collections != nil {
		cp.Collections = append([]string(nil), p.Collections...)
	}
	return &cp
}

// HasCollection reports whether the project already tracks a collection name
func (p *Project) HasCollection(name string) bool {
	for _, c := range p.Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Document is a schema-optional record: an open mapping of field name to
// value. Shape is whatever the owning endpoint's declared fields imply,
// but is not rigidly enforced at this layer.
type Document map[string]interface{}

// System-assigned document fields
const (
	DocumentIDField = "_id"
	CreatedAtField  = "createdAt"
	UpdatedAtField  = "updatedAt"
)

// ID returns the document's system-assigned identifier, if any
func (d Document) ID() string {
	if v, ok := d[DocumentIDField].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy of the document so callers cannot alias
// stored state
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// NewDocumentID returns a fresh system identifier
func NewDocumentID() string {
	return uuid.NewString()
}

// StampNew assigns an identifier (when absent) and creation/update
// timestamps to a document about to be inserted
func StampNew(d Document) Document {
	if d.ID() == "" {
		d[DocumentIDField] = NewDocumentID()
	}
	now := time.Now().UTC()
	d[CreatedAtField] = now
	d[UpdatedAtField] = now
	return d
}

// StampUpdate refreshes the update timestamp of a document being modified
func StampUpdate(d Document) Document {
	d[UpdatedAtField] = time.Now().UTC()
	return d
}
