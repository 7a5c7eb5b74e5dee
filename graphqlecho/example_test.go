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

package graphqlecho_test

import (
	"log"

	"github.com/labstack/echo/v4"
	"zombiezen.com/go/graphql-echo/graphqlecho"
	"zombiezen.com/go/graphql-echo/graphqlmock"
)

func Example() {
	// Set up the server.
	schema, err := graphqlmock.New(`
		type Query {
			greeting: String!
		}
	`)
	if err != nil {
		log.Fatal(err)
	}
	srv, err := graphqlecho.NewServer(schema, nil)
	if err != nil {
		log.Fatal(err)
	}

	// Serve /graphql and the health check with echo.
	e := echo.New()
	srv.RegisterRoutes(e, nil)
	e.Logger.Fatal(e.Start(":8080"))
}
