package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/tapcraft-io/shift/internal/openshift"
)

// printer writes objects as names, JSON or YAML, optionally through a jq
// filter
type printer struct {
	format string
	query  *gojq.Query
}

func newPrinter(format, jq string) (*printer, error) {
	switch format {
	case "", "name", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	p := &printer{format: format}
	if jq != "" {
		query, err := gojq.Parse(jq)
		if err != nil {
			return nil, fmt.Errorf("invalid jq expression: %w", err)
		}
		p.query = query
	}
	return p, nil
}

// Print writes objects sorted by name
func (p *printer) Print(w io.Writer, objects map[string]openshift.Resource) error {
	names := make([]string, 0, len(objects))
	for name := range objects {
		names = append(names, name)
	}
	sort.Strings(names)

	if p.query == nil && (p.format == "" || p.format == "name") {
		for _, name := range names {
			fmt.Fprintf(w, "%s/%s\n", objects[name].Base().Kind().CommandName(), name)
		}
		return nil
	}

	for _, name := range names {
		values, err := p.values(objects[name])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, v := range values {
			if err := p.write(w, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// values returns the object, or the results of the jq filter applied to it
func (p *printer) values(r openshift.Resource) ([]any, error) {
	// gojq only accepts JSON-native values, so round trip through JSON
	data, err := json.Marshal(r.Base().Raw().Object)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if p.query == nil {
		return []any{v}, nil
	}

	var out []any
	iter := p.query.Run(v)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := result.(error); ok {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

func (p *printer) write(w io.Writer, v any) error {
	if s, ok := v.(string); ok && p.format != "json" && p.format != "yaml" {
		_, err := fmt.Fprintln(w, s)
		return err
	}

	if p.format == "yaml" {
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "---\n%s", data)
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimSpace(string(data)))
	return err
}
