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

package graphqlmock

import (
	"context"
	"sort"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/xerrors"
)

var errIntrospectionDisabled = xerrors.New("introspection disabled")

func (r *resolver) introspectSchema(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	if r.opCtx.DisableIntrospection {
		graphql.AddError(ctx, errIntrospectionDisabled)
		return graphql.Null
	}
	return r.schemaObject(ctx, introspection.WrapSchema(r.schema), field.Selections)
}

func (r *resolver) introspectType(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	if r.opCtx.DisableIntrospection {
		graphql.AddError(ctx, errIntrospectionDisabled)
		return graphql.Null
	}
	name, _ := graphql.GetFieldContext(ctx).Args["name"].(string)
	def := r.schema.Types[name]
	if def == nil {
		return graphql.Null
	}
	return r.typeObject(ctx, introspection.WrapTypeFromDef(r.schema, def), field.Selections)
}

// introspectionObject resolves sel on one of the built-in introspection
// types by calling resolve for each field.
func (r *resolver) introspectionObject(ctx context.Context, typeName string, sel ast.SelectionSet, resolve func(context.Context, graphql.CollectedField) graphql.Marshaler) graphql.Marshaler {
	fields := graphql.CollectFields(r.opCtx, sel, []string{typeName})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		if field.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(typeName)
			continue
		}
		out.Values[i] = resolve(r.fieldContext(ctx, typeName, field), field)
	}
	return out
}

func (r *resolver) list(ctx context.Context, n int, elem func(context.Context, int) graphql.Marshaler) graphql.Marshaler {
	list := make(graphql.Array, n)
	for i := range list {
		idx := i
		list[i] = elem(graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &idx}), i)
	}
	return list
}

func (r *resolver) schemaObject(ctx context.Context, s *introspection.Schema, sel ast.SelectionSet) graphql.Marshaler {
	return r.introspectionObject(ctx, "__Schema", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "description":
			return optionalString(s.Description())
		case "types":
			types := s.Types()
			sort.Slice(types, func(i, j int) bool {
				return *types[i].Name() < *types[j].Name()
			})
			return r.list(ctx, len(types), func(ctx context.Context, i int) graphql.Marshaler {
				return r.typeObject(ctx, &types[i], field.Selections)
			})
		case "queryType":
			return r.typeObject(ctx, s.QueryType(), field.Selections)
		case "mutationType":
			return r.typeObject(ctx, s.MutationType(), field.Selections)
		case "subscriptionType":
			return r.typeObject(ctx, s.SubscriptionType(), field.Selections)
		case "directives":
			directives := s.Directives()
			return r.list(ctx, len(directives), func(ctx context.Context, i int) graphql.Marshaler {
				return r.directiveObject(ctx, &directives[i], field.Selections)
			})
		default:
			return graphql.Null
		}
	})
}

func (r *resolver) typeObject(ctx context.Context, t *introspection.Type, sel ast.SelectionSet) graphql.Marshaler {
	if t == nil {
		return graphql.Null
	}
	return r.introspectionObject(ctx, "__Type", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		includeDeprecated, _ := graphql.GetFieldContext(ctx).Args["includeDeprecated"].(bool)
		switch field.Name {
		case "kind":
			return graphql.MarshalString(t.Kind())
		case "name":
			return optionalString(t.Name())
		case "description":
			return optionalString(t.Description())
		case "fields":
			fields := t.Fields(includeDeprecated)
			if fields == nil {
				return graphql.Null
			}
			return r.list(ctx, len(fields), func(ctx context.Context, i int) graphql.Marshaler {
				return r.fieldObject(ctx, &fields[i], field.Selections)
			})
		case "interfaces":
			return r.typeList(ctx, t.Interfaces(), field.Selections)
		case "possibleTypes":
			return r.typeList(ctx, t.PossibleTypes(), field.Selections)
		case "enumValues":
			values := t.EnumValues(includeDeprecated)
			if values == nil {
				return graphql.Null
			}
			return r.list(ctx, len(values), func(ctx context.Context, i int) graphql.Marshaler {
				return r.enumValueObject(ctx, &values[i], field.Selections)
			})
		case "inputFields":
			return r.inputValueList(ctx, t.InputFields(), field.Selections)
		case "ofType":
			return r.typeObject(ctx, t.OfType(), field.Selections)
		default:
			return graphql.Null
		}
	})
}

func (r *resolver) typeList(ctx context.Context, types []introspection.Type, sel ast.SelectionSet) graphql.Marshaler {
	if types == nil {
		return graphql.Null
	}
	return r.list(ctx, len(types), func(ctx context.Context, i int) graphql.Marshaler {
		return r.typeObject(ctx, &types[i], sel)
	})
}

func (r *resolver) fieldObject(ctx context.Context, f *introspection.Field, sel ast.SelectionSet) graphql.Marshaler {
	return r.introspectionObject(ctx, "__Field", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(f.Name)
		case "description":
			return optionalString(f.Description())
		case "args":
			return r.inputValueList(ctx, f.Args, field.Selections)
		case "type":
			return r.typeObject(ctx, f.Type, field.Selections)
		case "isDeprecated":
			return graphql.MarshalBoolean(f.IsDeprecated())
		case "deprecationReason":
			return optionalString(f.DeprecationReason())
		default:
			return graphql.Null
		}
	})
}

func (r *resolver) inputValueList(ctx context.Context, values []introspection.InputValue, sel ast.SelectionSet) graphql.Marshaler {
	if values == nil {
		return graphql.Null
	}
	return r.list(ctx, len(values), func(ctx context.Context, i int) graphql.Marshaler {
		v := &values[i]
		return r.introspectionObject(ctx, "__InputValue", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
			switch field.Name {
			case "name":
				return graphql.MarshalString(v.Name)
			case "description":
				return optionalString(v.Description())
			case "type":
				return r.typeObject(ctx, v.Type, field.Selections)
			case "defaultValue":
				return optionalString(v.DefaultValue)
			default:
				return graphql.Null
			}
		})
	})
}

func (r *resolver) enumValueObject(ctx context.Context, v *introspection.EnumValue, sel ast.SelectionSet) graphql.Marshaler {
	return r.introspectionObject(ctx, "__EnumValue", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(v.Name)
		case "description":
			return optionalString(v.Description())
		case "isDeprecated":
			return graphql.MarshalBoolean(v.IsDeprecated())
		case "deprecationReason":
			return optionalString(v.DeprecationReason())
		default:
			return graphql.Null
		}
	})
}

func (r *resolver) directiveObject(ctx context.Context, d *introspection.Directive, sel ast.SelectionSet) graphql.Marshaler {
	return r.introspectionObject(ctx, "__Directive", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(d.Name)
		case "description":
			return optionalString(d.Description())
		case "locations":
			return r.list(ctx, len(d.Locations), func(ctx context.Context, i int) graphql.Marshaler {
				return graphql.MarshalString(d.Locations[i])
			})
		case "args":
			return r.inputValueList(ctx, d.Args, field.Selections)
		case "isRepeatable":
			def := r.schema.Directives[d.Name]
			return graphql.MarshalBoolean(def != nil && def.IsRepeatable)
		default:
			return graphql.Null
		}
	})
}

func optionalString(s *string) graphql.Marshaler {
	if s == nil {
		return graphql.Null
	}
	return graphql.MarshalString(*s)
}
