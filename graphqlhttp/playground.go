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

import (
	"bytes"
	"html/template"

	"golang.org/x/xerrors"
)

// Playground defaults.
const (
	DefaultPlaygroundVersion = "1.7.42"
	DefaultPlaygroundCDNURL  = "https://cdn.jsdelivr.net/npm/@apollographql/graphql-playground-react"
	DefaultPlaygroundTitle   = "GraphQL Playground"
)

// PlaygroundConfig parameterizes the GraphQL Playground page. The zero value
// renders the default page pointed at DefaultPath.
type PlaygroundConfig struct {
	// Title is the page title. Empty means DefaultPlaygroundTitle.
	Title string
	// Version is the graphql-playground-react release to load. Empty means
	// DefaultPlaygroundVersion.
	Version string
	// CDNURL is the base URL of the graphql-playground-react package. Empty
	// means DefaultPlaygroundCDNURL.
	CDNURL string
	// Endpoint is the URL queries are sent to. Engines fill it in with their
	// GraphQL path.
	Endpoint string
	// SubscriptionEndpoint is the websocket URL subscriptions are sent to.
	SubscriptionEndpoint string
	// Settings are passed through to the Playground as its settings object.
	// Nil means a small set of defaults.
	Settings map[string]interface{}
}

func defaultPlaygroundSettings() map[string]interface{} {
	return map[string]interface{}{
		"general.betaUpdates":         false,
		"editor.theme":                "dark",
		"editor.cursorShape":          "line",
		"editor.reuseHeaders":         true,
		"tracing.hideTracingResponse": true,
		"editor.fontSize":             14,
		"request.credentials":         "omit",
	}
}

var playgroundTemplate = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="{{.BaseURL}}/build/static/css/index.css" />
  <link rel="shortcut icon" href="{{.BaseURL}}/build/favicon.png" />
  <script src="{{.BaseURL}}/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root"></div>
  <script>
    window.addEventListener('load', function (event) {
      GraphQLPlayground.init(document.getElementById('root'), {{.Init}});
    });
  </script>
</body>
</html>
`))

// RenderPlayground renders the GraphQL Playground HTML page.
func RenderPlayground(cfg *PlaygroundConfig) ([]byte, error) {
	if cfg == nil {
		cfg = new(PlaygroundConfig)
	}
	title := cfg.Title
	if title == "" {
		title = DefaultPlaygroundTitle
	}
	version := cfg.Version
	if version == "" {
		version = DefaultPlaygroundVersion
	}
	cdn := cfg.CDNURL
	if cdn == "" {
		cdn = DefaultPlaygroundCDNURL
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultPath
	}
	settings := cfg.Settings
	if settings == nil {
		settings = defaultPlaygroundSettings()
	}
	init := map[string]interface{}{
		"endpoint": endpoint,
		"settings": settings,
	}
	if cfg.SubscriptionEndpoint != "" {
		init["subscriptionEndpoint"] = cfg.SubscriptionEndpoint
	}
	buf := new(bytes.Buffer)
	err := playgroundTemplate.Execute(buf, struct {
		Title   string
		BaseURL string
		Init    map[string]interface{}
	}{
		Title:   title,
		BaseURL: cdn + "@" + version,
		Init:    init,
	})
	if err != nil {
		return nil, xerrors.Errorf("render playground: %w", err)
	}
	return buf.Bytes(), nil
}
