package router

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Routes []RouteRecord `yaml:"routes"`
}

// LoadTable parses a YAML route table of the form:
//
//	routes:
//	  - path: /
//	    meta: {middleware: auth}
//	    children:
//	      - {path: dashboard, name: dashboard, meta: {pageTitle: Dashboard}}
func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f tableFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidTable)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return NewTable(f.Routes)
}

// LoadTableFile reads a YAML route table from path.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open route table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}
