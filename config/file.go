package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ParseError denotes failing to parse a configuration file.
type ParseError struct {
	File string
	err  error
}

func (pe *ParseError) Error() string {
	return fmt.Sprintf("while parsing config %s: %s", pe.File, pe.err.Error())
}

// Cause returns the underlying parser error.
func (pe *ParseError) Cause() error { return pe.err }

// File is a configuration file source.
type File struct {
	mu       sync.Mutex
	format   string
	filename string
	values   map[string]interface{}
}

// NewFile returns a file source. An empty format is taken from the extension.
func NewFile(format, filename string) (*File, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(filename), ".")
	}
	switch strings.ToLower(format) {
	case "yaml", "yml", "json", "toml":
	default:
		return nil, errors.Errorf("unknown config format %q for %s", format, filename)
	}
	return &File{format: strings.ToLower(format), filename: filename}, nil
}

// Name returns the file path.
func (c *File) Name() string { return c.filename }

// Values returns the values read by the last successful Load.
func (c *File) Values() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values
}

// Load reads and parses the file.
func (c *File) Load() error {
	data, err := os.ReadFile(c.filename)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	values, err := parse(c.format, data)
	if err != nil {
		return &ParseError{File: c.filename, err: err}
	}
	c.mu.Lock()
	c.values = values
	c.mu.Unlock()
	return nil
}

func parse(format string, data []byte) (map[string]interface{}, error) {
	c := make(map[string]interface{})
	switch format {
	case "yaml", "yml":
		var raw map[interface{}]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			c[strings.ToLower(fmt.Sprint(k))] = normalizeValue(v)
		}
	case "json":
		filterComments(data)
		if err := json.Unmarshal(data, &c); err != nil {
			if serr, ok := err.(*json.SyntaxError); ok {
				return nil, fmtSyntaxError(data, serr)
			}
			return nil, err
		}
	case "toml":
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, err
		}
		c = tree.ToMap()
	}
	return lowerKeys(c), nil
}

// filterComments blanks out // comments outside of strings in place.
func filterComments(data []byte) {
	var inString, inComment bool
	for i := 0; i < len(data); i++ {
		ch := data[i]
		if !inComment && ch == '"' && (i == 0 || data[i-1] != '\\') {
			inString = !inString
		}
		if inString || i == 0 {
			continue
		}
		switch {
		case inComment && ch == '\n':
			inComment = false
		case ch == '/' && data[i-1] == '/':
			inComment = true
			data[i] = ' '
			data[i-1] = ' '
		case inComment:
			data[i] = ' '
		}
	}
}

// fmtSyntaxError points out the line where a JSON syntax error occurred.
func fmtSyntaxError(js []byte, syntax *json.SyntaxError) error {
	start := bytes.LastIndex(js[:syntax.Offset], []byte{'\n'}) + 1
	line := bytes.Count(js[:start], []byte{'\n'}) + 1
	return errors.Errorf("%s (byte=%d line=%d): %s<---",
		syntax.Error(), syntax.Offset, line, string(js[start:syntax.Offset]))
}
