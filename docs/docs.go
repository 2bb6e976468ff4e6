// Package docs registers the Swagger spec for the Kvitta API with
// swaggo/swag, so httpSwagger.Handler can serve it at /swagger/*.
//
// A real swag init run (against the @-annotations in internal/httpapi and
// cmd/api) would regenerate this file with the full path/definition table;
// this hand-authored version carries only the top-level info block.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"termsOfService": "http://swagger.io/terms/",
		"contact": {},
		"license": {
			"name": "MIT",
			"url": "https://opensource.org/licenses/MIT"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {}
}`

// SwaggerInfo holds exported Swagger metadata for cmd/api/main.go's
// @title/@version/... annotations.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kvitta Receipt & Ledger API",
	Description:      "Bill-splitting back end: receipts, splits, and the ledger of IOUs they produce.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
