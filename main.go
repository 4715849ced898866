//go:generate go run -tags generate jsonschema/schema_generator.go
//go:generate swag init --dir internal/api,internal/types --generalInfo handler.go --output docs --outputTypes go,json

package main

import "github.com/theopenlane/detectify/cmd"

func main() {
	cmd.Execute()
}
