package config

import (
	"os"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/pflag"
)

// Registry holds configuration sources and merges them by priority.
// It is go-routine safe.
type Registry struct {
	mu sync.Mutex

	keyDelim  string
	envPrefix string

	defaults map[string]interface{}
	override map[string]interface{}
	files    []*File
	flags    map[string]*pflag.Flag
	env      map[string][]string

	automaticEnv bool

	cache map[string]interface{}
}

// Option configures a Registry.
type Option func(*Registry)

// KeyDelimiter sets the separator of key parts. Default ".".
func KeyDelimiter(d string) Option {
	return func(r *Registry) { r.keyDelim = d }
}

// EnvPrefix is prepended, with "_", to environment variable names.
func EnvPrefix(pfx string) Option {
	return func(r *Registry) { r.envPrefix = pfx }
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		keyDelim: ".",
		defaults: make(map[string]interface{}),
		override: make(map[string]interface{}),
		flags:    make(map[string]*pflag.Flag),
		env:      make(map[string][]string),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) path(key string) []string {
	return strings.Split(strings.ToLower(key), r.keyDelim)
}

// SetDefault sets the value used when no other source has the key.
func (r *Registry) SetDefault(key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setKeyInMap(r.defaults, r.path(key), value)
	r.cache = nil
}

// Set overrides all other sources for key.
func (r *Registry) Set(key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setKeyInMap(r.override, r.path(key), value)
	r.cache = nil
}

// AddConfigFile adds a file source, the format is given by the extension
// unless format is set. The file is read by Load.
func (r *Registry) AddConfigFile(format, filename string) error {
	if filename == "" {
		return nil
	}
	f, err := NewFile(format, filename)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.files = append(r.files, f)
	r.cache = nil
	r.mu.Unlock()
	return nil
}

// ConfigFiles returns the paths of the file sources.
func (r *Registry) ConfigFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, f := range r.files {
		names = append(names, f.Name())
	}
	return names
}

// Load (re)reads all file sources. On error the previous values are kept.
func (r *Registry) Load() error {
	r.mu.Lock()
	files := append([]*File(nil), r.files...)
	r.mu.Unlock()

	for _, f := range files {
		jww.DEBUG.Printf("loading config file %s", f.Name())
		if err := f.Load(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
	return nil
}

// BindPFlag binds key to a flag. The flag only counts when given explicitly.
func (r *Registry) BindPFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return errors.Errorf("flag for %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[strings.ToLower(key)] = flag
	r.cache = nil
	return nil
}

// BindEnv binds key to environment variables. With only a key the name is
// the prefixed, upper cased key with the delimiter replaced by "_".
func (r *Registry) BindEnv(input ...string) error {
	if len(input) == 0 {
		return errors.New("missing key to bind to")
	}
	key := strings.ToLower(input[0])
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(input) == 1 {
		r.env[key] = append(r.env[key], r.envName(key))
	} else {
		r.env[key] = append(r.env[key], input[1:]...)
	}
	r.cache = nil
	return nil
}

// AutomaticEnv binds every key which has a default to its environment variable.
func (r *Registry) AutomaticEnv() {
	r.mu.Lock()
	r.automaticEnv = true
	r.cache = nil
	r.mu.Unlock()
}

func (r *Registry) envName(key string) string {
	name := strings.ReplaceAll(key, r.keyDelim, "_")
	if r.envPrefix != "" {
		name = r.envPrefix + "_" + name
	}
	return strings.ToUpper(name)
}

func (r *Registry) envValues() map[string]interface{} {
	result := make(map[string]interface{})
	bindings := make(map[string][]string, len(r.env))
	for k, v := range r.env {
		bindings[k] = v
	}
	if r.automaticEnv {
		for _, k := range flattenKeys(r.defaults, "", r.keyDelim) {
			if _, bound := bindings[k]; !bound {
				bindings[k] = []string{r.envName(k)}
			}
		}
	}
	for key, names := range bindings {
		for _, name := range names {
			if val, ok := os.LookupEnv(name); ok && val != "" {
				setKeyInMap(result, strings.Split(key, r.keyDelim), val)
				break
			}
		}
	}
	return result
}

func (r *Registry) flagValues() map[string]interface{} {
	result := make(map[string]interface{})
	for key, flag := range r.flags {
		if !flag.Changed {
			continue
		}
		var val interface{}
		switch flag.Value.Type() {
		case "int", "int8", "int16", "int32", "int64":
			val = cast.ToInt(flag.Value.String())
		case "bool":
			val = cast.ToBool(flag.Value.String())
		case "duration":
			val = cast.ToDuration(flag.Value.String())
		case "stringSlice":
			s := strings.TrimSuffix(strings.TrimPrefix(flag.Value.String(), "["), "]")
			val = cast.ToStringSlice(strings.Split(s, ","))
		default:
			val = flag.Value.String()
		}
		setKeyInMap(result, strings.Split(key, r.keyDelim), val)
	}
	return result
}

// Config returns the merged configuration. The map must not be modified.
func (r *Registry) Config() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		c := deepCopyMap(r.defaults)
		for _, f := range r.files {
			mergeMaps(c, deepCopyMap(f.Values()))
		}
		mergeMaps(c, r.envValues())
		mergeMaps(c, r.flagValues())
		mergeMaps(c, deepCopyMap(r.override))
		r.cache = c
	}
	return r.cache
}

// Get returns the value of key or nil.
func (r *Registry) Get(key string) interface{} {
	return searchMap(r.Config(), r.path(key))
}

// GetString returns the value of key cast to a string.
func (r *Registry) GetString(key string) string { return cast.ToString(r.Get(key)) }

// GetBool returns the value of key cast to a bool.
func (r *Registry) GetBool(key string) bool { return cast.ToBool(r.Get(key)) }

// GetInt returns the value of key cast to an int.
func (r *Registry) GetInt(key string) int { return cast.ToInt(r.Get(key)) }

// DecoderConfigOption can be passed to Unmarshal to configure mapstructure.
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// ErrorUnused makes Unmarshal fail on keys the destination has no field for.
func ErrorUnused() DecoderConfigOption {
	return func(c *mapstructure.DecoderConfig) { c.ErrorUnused = true }
}

// Unmarshal decodes the merged configuration into dst, using "mapstructure"
// struct tags. Strings are accepted for durations, numbers and booleans.
func (r *Registry) Unmarshal(dst interface{}, opts ...DecoderConfigOption) error {
	return r.UnmarshalKey("", dst, opts...)
}

// UnmarshalKey decodes the sub tree at key into dst. An empty key is the root.
func (r *Registry) UnmarshalKey(key string, dst interface{}, opts ...DecoderConfigOption) error {
	var input interface{} = r.Config()
	if key != "" {
		input = r.Get(key)
	}
	c := &mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	for _, o := range opts {
		o(c)
	}
	dec, err := mapstructure.NewDecoder(c)
	if err != nil {
		return errors.Wrap(err, "config decoder")
	}
	return errors.Wrap(dec.Decode(input), "decode config")
}
