// Package docs отдаёт OpenAPI-описание JSON-варианта страниц для /swagger.
package docs

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.json
var spec []byte

func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}
