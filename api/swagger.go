// Package api embeds the OpenAPI description served at /swagger.
package api

import _ "embed"

// SwaggerJSON is the OpenAPI 2.0 document for the REST surface.
//
//go:embed swagger/user.swagger.json
var SwaggerJSON []byte
