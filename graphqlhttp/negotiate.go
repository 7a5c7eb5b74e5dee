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

package graphqlhttp

import "github.com/munnerz/goautoneg"

var negotiableTypes = []string{"application/json", "text/html"}

// PrefersHTML reports whether a request with the given Accept header value
// should be answered with HTML rather than JSON. The type with the higher
// quality wins. Types of equal quality are ranked by their order in accept,
// and a wildcard alone matches JSON. An empty header means JSON.
func PrefersHTML(accept string) bool {
	if accept == "" {
		return false
	}
	return goautoneg.Negotiate(accept, negotiableTypes) == "text/html"
}
