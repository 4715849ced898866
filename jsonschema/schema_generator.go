//go:build generate

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	iyaml "github.com/invopop/yaml"
	"github.com/mcuadros/go-defaults"

	"github.com/theopenlane/utils/envparse"

	"github.com/theopenlane/detectify/config"
	"github.com/theopenlane/detectify/internal/heuristic"
	"github.com/theopenlane/detectify/internal/pipeline"
)

const (
	// tagName is the struct tag that names config keys
	tagName = "koanf"
	// varPrefix is the environment variable prefix without the trailing underscore
	varPrefix = "DETECTIFY"
	// modulePath is the import path comments are resolved against
	modulePath = "github.com/theopenlane/detectify/"

	jsonSchemaPath = "./jsonschema/detectify.config.json"
	yamlConfigPath = "./config/config.example.yaml"
	envConfigPath  = "./config/.env.example"

	ownerReadWrite = 0600
)

var durationType = reflect.TypeOf(time.Duration(0))

func main() {
	cfg := defaultConfig()

	for _, step := range []func(*config.Config) error{writeSchema, writeYAML, writeEnv} {
		if err := step(cfg); err != nil {
			panic(err)
		}
	}
}

// defaultConfig applies the struct tag defaults plus the list defaults that live in code
func defaultConfig() *config.Config {
	cfg := &config.Config{}
	defaults.SetDefaults(cfg)

	for _, stage := range pipeline.DefaultStages() {
		cfg.Pipeline.Thresholds = append(cfg.Pipeline.Thresholds, stage.Threshold)
		cfg.Pipeline.StageTimeouts = append(cfg.Pipeline.StageTimeouts, stage.Timeout)
	}

	cfg.Fallback.Keywords = heuristic.DefaultKeywords
	cfg.Fallback.SpecialtyTerms = heuristic.DefaultSpecialtyTerms

	return cfg
}

func writeSchema(cfg *config.Config) error {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               tagName,
	}

	if err := r.AddGoComments(modulePath, "./config"); err != nil {
		return fmt.Errorf("reading config comments: %w", err)
	}

	data, err := json.MarshalIndent(r.Reflect(cfg), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json schema: %w", err)
	}

	return write(jsonSchemaPath, data)
}

// writeYAML renders every section with durations as strings and secrets left blank
func writeYAML(cfg *config.Config) error {
	out := map[string]any{}

	root := reflect.ValueOf(cfg).Elem()
	for i := range root.NumField() {
		section := root.Type().Field(i)
		out[section.Tag.Get(tagName)] = sectionValues(root.Field(i))
	}

	data, err := iyaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding example yaml: %w", err)
	}

	return write(yamlConfigPath, data)
}

func sectionValues(section reflect.Value) map[string]any {
	values := map[string]any{}

	for i := range section.NumField() {
		field := section.Type().Field(i)
		key := field.Tag.Get(tagName)

		switch {
		case key == "" || key == "-":
			continue
		case field.Tag.Get("sensitive") == "true":
			values[key] = ""
		default:
			values[key] = plain(section.Field(i))
		}
	}

	return values
}

// plain converts durations, including those inside lists, to their string form
func plain(v reflect.Value) any {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}

	if v.Kind() == reflect.Slice && v.Type().Elem() == durationType {
		out := make([]string, v.Len())
		for i := range out {
			out[i] = time.Duration(v.Index(i).Int()).String()
		}

		return out
	}

	return v.Interface()
}

// writeEnv lists every variable the env provider maps, grouped by section
func writeEnv(cfg *config.Config) error {
	cp := envparse.Config{FieldTagName: tagName, Skipper: "-"}

	vars, err := cp.GatherEnvInfo(varPrefix, cfg)
	if err != nil {
		return fmt.Errorf("gathering env vars: %w", err)
	}

	var b strings.Builder

	section := ""

	for _, v := range vars {
		if s := strings.SplitN(strings.TrimPrefix(v.Key, varPrefix+"_"), "_", 2)[0]; s != section {
			section = s
			fmt.Fprintf(&b, "\n# %s\n", strings.ToLower(section))
		}

		value := v.Tags.Get("default")
		if v.Tags.Get("sensitive") == "true" {
			value = ""
		}

		fmt.Fprintf(&b, "%s=%q\n", v.Key, value)
	}

	return write(envConfigPath, []byte(strings.TrimPrefix(b.String(), "\n")))
}

func write(path string, data []byte) error {
	if err := os.WriteFile(path, data, ownerReadWrite); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Printf("wrote %s\n", path)

	return nil
}
