package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var catalogSchema string

// fileCatalog is the on-disk catalog layout shared by every file format:
//
//	entities:
//	  - name: Case
//	    fields:
//	      - api_name: Status
//	        label: Status
//	        data_type: PICKLIST
//	        choices: [{label: Open, value: Open}]
type fileCatalog struct {
	Entities []fileEntity `json:"entities" yaml:"entities" toml:"entities"`
}

type fileEntity struct {
	Name   string      `json:"name" yaml:"name" toml:"name"`
	Label  string      `json:"label,omitempty" yaml:"label" toml:"label"`
	Fields []fileField `json:"fields" yaml:"fields" toml:"fields"`
}

type fileField struct {
	APIName  string   `json:"api_name" yaml:"api_name" toml:"api_name"`
	Label    string   `json:"label,omitempty" yaml:"label" toml:"label"`
	DataType string   `json:"data_type" yaml:"data_type" toml:"data_type"`
	Choices  []Choice `json:"choices,omitempty" yaml:"choices" toml:"choices"`
}

// LoadFile reads a catalog definition and returns a populated registry.
// The format is chosen by extension: .yaml/.yml, .json, .toml or .cue.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Load(filepath.Ext(path), data, path)
}

// Load decodes catalog data in the format named by ext. name is used in
// error messages only.
func Load(ext string, data []byte, name string) (*Registry, error) {
	var fc fileCatalog
	var err error
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &fc)
	case "json":
		err = json.Unmarshal(data, &fc)
	case "toml":
		err = toml.Unmarshal(data, &fc)
	case "cue":
		fc, err = decodeCUE(data, name)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", name, err)
	}
	return fc.registry()
}

// decodeCUE unifies the document with the embedded #Catalog definition so
// that unknown data types and missing names are rejected before decoding.
func decodeCUE(data []byte, name string) (fileCatalog, error) {
	var fc fileCatalog
	ctx := cuecontext.New()

	schema := ctx.CompileString(catalogSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fc, fmt.Errorf("compiling catalog schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(name))
	if err := doc.Err(); err != nil {
		return fc, err
	}

	val := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(doc)
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fc, err
	}
	if err := val.Decode(&fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func (fc fileCatalog) registry() (*Registry, error) {
	reg := NewRegistry()
	for i, fe := range fc.Entities {
		if fe.Name == "" {
			return nil, fmt.Errorf("entity %d missing name", i)
		}
		es := &EntitySchema{
			Name:    fe.Name,
			Label:   fe.Label,
			Choices: make(map[string][]Choice),
		}
		for j, ff := range fe.Fields {
			if ff.APIName == "" {
				return nil, fmt.Errorf("entity %q: field %d missing api_name", fe.Name, j)
			}
			label := ff.Label
			if label == "" {
				label = ff.APIName
			}
			dt := ParseDataType(ff.DataType)
			es.Fields = append(es.Fields, FieldDescriptor{
				APIName:  ff.APIName,
				Label:    label,
				DataType: dt,
			})
			if len(ff.Choices) > 0 {
				es.Choices[strings.ToLower(ff.APIName)] = ff.Choices
			}
		}
		reg.Register(es)
	}
	return reg, nil
}
