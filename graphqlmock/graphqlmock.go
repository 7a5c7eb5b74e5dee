// Copyright 2019 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

/*
Package graphqlmock provides a GraphQL executable schema that answers every
operation with generated data. It is useful for prototyping a schema before any
resolvers exist and for testing HTTP plumbing without a real backend.

Mock Values

Unless overridden with WithMock, leaf values are produced as follows:

	String   "Hello World"
	Int      42
	Float    4.2
	Boolean  true
	ID       a UUID derived from the response path
	enums    the first declared value
	scalars  "Hello World"

Lists contain two elements (see WithListLength). Fields of interface or union
type resolve to the first possible type. The same query always produces the
same response.
*/
package graphqlmock

import (
	"bytes"
	"context"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/xerrors"
)

// MockFunc produces a value for a scalar or enum field. The field's response
// path can be obtained with graphql.GetPath(ctx). The returned value must be
// nil, a string, a bool, an integer, a float64, or a graphql.Marshaler.
// Returning an error adds it to the response and resolves the field to null.
type MockFunc func(ctx context.Context) (interface{}, error)

// Schema is a graphql.ExecutableSchema that resolves every field with mock
// data. It is safe to use from multiple goroutines.
type Schema struct {
	schema     *ast.Schema
	mocks      map[string]MockFunc
	listLength int
}

// An Option configures a Schema.
type Option func(*Schema)

// WithMock overrides the values produced for the named scalar or enum type.
func WithMock(typeName string, f MockFunc) Option {
	return func(s *Schema) {
		s.mocks[typeName] = f
	}
}

// WithListLength sets the number of elements in mocked lists.
func WithListLength(n int) Option {
	return func(s *Schema) {
		s.listLength = n
	}
}

// New parses the GraphQL type definitions in sdl and returns a schema that
// mocks them.
func New(sdl string, opts ...Option) (*Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{
		Name:  "schema.graphql",
		Input: sdl,
	})
	if err != nil {
		return nil, xerrors.Errorf("new mock schema: %w", err)
	}
	s := &Schema{
		schema:     schema,
		mocks:      make(map[string]MockFunc),
		listLength: 2,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.listLength < 0 {
		return nil, xerrors.Errorf("new mock schema: negative list length %d", s.listLength)
	}
	return s, nil
}

// Schema returns the parsed schema.
func (s *Schema) Schema() *ast.Schema {
	return s.schema
}

// Complexity reports that no field has a custom complexity.
func (s *Schema) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

// Exec returns a handler that resolves the operation in ctx. Queries and
// mutations produce a single response. Subscriptions produce a single event
// and then end the stream.
func (s *Schema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	var root *ast.Definition
	switch opCtx.Operation.Operation {
	case ast.Query:
		root = s.schema.Query
	case ast.Mutation:
		root = s.schema.Mutation
	case ast.Subscription:
		root = s.schema.Subscription
	}
	if root == nil {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported operation type %s", opCtx.Operation.Operation))
	}
	done := false
	return func(ctx context.Context) *graphql.Response {
		if done {
			return nil
		}
		done = true
		r := &resolver{
			Schema: s,
			opCtx:  opCtx,
		}
		data := r.object(ctx, root, opCtx.Operation.SelectionSet)
		var buf bytes.Buffer
		data.MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

// resolver holds the state for a single operation.
type resolver struct {
	*Schema
	opCtx *graphql.OperationContext
}

// object resolves the selection set on an object type. It returns
// graphql.Null if a non-null field could not be resolved.
func (r *resolver) object(ctx context.Context, def *ast.Definition, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(r.opCtx, sel, r.satisfies(def))
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString(def.Name)
			continue
		case "__schema":
			out.Values[i] = r.introspectSchema(r.fieldContext(ctx, def.Name, field), field)
			continue
		case "__type":
			out.Values[i] = r.introspectType(r.fieldContext(ctx, def.Name, field), field)
			continue
		}
		v := r.value(r.fieldContext(ctx, def.Name, field), field.Definition.Type, field.Selections)
		if v == graphql.Null && field.Definition.Type.NonNull {
			return graphql.Null
		}
		out.Values[i] = v
	}
	return out
}

func (r *resolver) fieldContext(ctx context.Context, objectName string, field graphql.CollectedField) context.Context {
	var args map[string]interface{}
	if field.Definition != nil {
		args = field.ArgumentMap(r.opCtx.Variables)
	}
	return graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object:     objectName,
		Field:      field,
		Args:       args,
		IsResolver: true,
	})
}

// satisfies returns the type conditions that fragments may use to select
// fields on def.
func (r *resolver) satisfies(def *ast.Definition) []string {
	names := []string{def.Name}
	for _, impl := range r.schema.GetImplements(def) {
		names = append(names, impl.Name)
	}
	return names
}

func (r *resolver) value(ctx context.Context, typ *ast.Type, sel ast.SelectionSet) graphql.Marshaler {
	if typ.Elem != nil {
		list := make(graphql.Array, r.listLength)
		for i := range list {
			idx := i
			elemCtx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &idx})
			v := r.value(elemCtx, typ.Elem, sel)
			if v == graphql.Null && typ.Elem.NonNull {
				return graphql.Null
			}
			list[i] = v
		}
		return list
	}
	def := r.schema.Types[typ.NamedType]
	if def == nil {
		graphql.AddErrorf(ctx, "unknown type %s", typ.NamedType)
		return graphql.Null
	}
	switch def.Kind {
	case ast.Object:
		return r.object(ctx, def, sel)
	case ast.Interface, ast.Union:
		possible := r.schema.GetPossibleTypes(def)
		if len(possible) == 0 {
			graphql.AddErrorf(ctx, "abstract type %s has no implementations", def.Name)
			return graphql.Null
		}
		return r.object(ctx, possible[0], sel)
	default:
		return r.leaf(ctx, def)
	}
}

func (r *resolver) leaf(ctx context.Context, def *ast.Definition) (m graphql.Marshaler) {
	if mock := r.mocks[def.Name]; mock != nil {
		defer func() {
			if v := recover(); v != nil {
				graphql.AddError(ctx, r.opCtx.Recover(ctx, v))
				m = graphql.Null
			}
		}()
		v, err := mock(ctx)
		if err != nil {
			graphql.AddError(ctx, err)
			return graphql.Null
		}
		mv, err := marshalLeaf(v)
		if err != nil {
			graphql.AddError(ctx, xerrors.Errorf("mock %s: %w", def.Name, err))
			return graphql.Null
		}
		return mv
	}
	switch def.Name {
	case "Int":
		return graphql.MarshalInt(42)
	case "Float":
		return graphql.MarshalFloat(4.2)
	case "Boolean":
		return graphql.MarshalBoolean(true)
	case "ID":
		path := graphql.GetPath(ctx).String()
		return graphql.MarshalID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String())
	}
	if def.Kind == ast.Enum && len(def.EnumValues) > 0 {
		return graphql.MarshalString(def.EnumValues[0].Name)
	}
	return graphql.MarshalString("Hello World")
}

func marshalLeaf(v interface{}) (graphql.Marshaler, error) {
	switch v := v.(type) {
	case nil:
		return graphql.Null, nil
	case graphql.Marshaler:
		return v, nil
	case string:
		return graphql.MarshalString(v), nil
	case bool:
		return graphql.MarshalBoolean(v), nil
	case int:
		return graphql.MarshalInt(v), nil
	case int32:
		return graphql.MarshalInt32(v), nil
	case int64:
		return graphql.MarshalInt64(v), nil
	case float64:
		return graphql.MarshalFloat(v), nil
	default:
		return nil, xerrors.Errorf("unsupported value of type %T", v)
	}
}
