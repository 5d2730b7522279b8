// Package config is the in memory and on disk configuration of the machine.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/filecoin-project/go-address"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
)

var log = logging.Logger("config")

// Config is an in memory representation of the configuration file
type Config struct {
	Network   *NetworkConfig   `toml:"network"`
	Gas       *GasConfig       `toml:"gas"`
	Execution *ExecutionConfig `toml:"execution"`
	Datastore *DatastoreConfig `toml:"datastore"`
}

// NetworkConfig selects the network addresses are formatted for.
type NetworkConfig struct {
	Network string `toml:"network"`
}

func newDefaultNetworkConfig() *NetworkConfig {
	return &NetworkConfig{
		Network: "mainnet",
	}
}

// AddressNetwork returns the address network named by the config.
func (cfg *NetworkConfig) AddressNetwork() address.Network {
	if cfg.Network == "testnet" {
		return address.Testnet
	}
	return address.Mainnet
}

// GasConfig holds all configuration options related to gas accounting.
type GasConfig struct {
	// Schedule is one of "default", "genesis" or "calico".
	Schedule        string `toml:"schedule"`
	DetailedTracing bool   `toml:"detailedTracing"`
}

func newDefaultGasConfig() *GasConfig {
	return &GasConfig{
		Schedule:        "default",
		DetailedTracing: os.Getenv("VENUS_VM_ENABLE_TRACING") == "1",
	}
}

// ExecutionConfig holds the limits and diagnostics of message execution.
type ExecutionConfig struct {
	MaxBlockSize string `toml:"maxBlockSize"`
	MaxBlocks    int    `toml:"maxBlocks"`
	Tracing      bool   `toml:"tracing"`
	// DebugFile, when set, receives a dump of every execution trace.
	DebugFile string `toml:"debugFile,omitempty"`
}

func newDefaultExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{
		MaxBlockSize: "1MiB",
		MaxBlocks:    1 << 16,
		Tracing:      false,
	}
}

// MaxBlockSizeBytes parses MaxBlockSize.
func (cfg *ExecutionConfig) MaxBlockSizeBytes() (int, error) {
	n, err := units.RAMInBytes(cfg.MaxBlockSize)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid execution.maxBlockSize %q", cfg.MaxBlockSize)
	}
	return int(n), nil
}

// DatastoreConfig holds all the configuration options for the durable store.
type DatastoreConfig struct {
	// Type is "memory" or "badger".
	Type string `toml:"type"`
	Path string `toml:"path"`
	// CacheSize is the number of blocks kept in the read cache, e.g. "32k".
	CacheSize  string `toml:"cacheSize"`
	SyncWrites bool   `toml:"syncWrites"`
}

func newDefaultDatastoreConfig() *DatastoreConfig {
	return &DatastoreConfig{
		Type:      "badger",
		Path:      "badger",
		CacheSize: "32k",
	}
}

// CacheEntries parses CacheSize.
func (cfg *DatastoreConfig) CacheEntries() (int, error) {
	n, err := units.FromHumanSize(cfg.CacheSize)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid datastore.cacheSize %q", cfg.CacheSize)
	}
	return int(n), nil
}

// NewDefaultConfig returns a config object with all the fields filled out to
// their default values
func NewDefaultConfig() *Config {
	return &Config{
		Network:   newDefaultNetworkConfig(),
		Gas:       newDefaultGasConfig(),
		Execution: newDefaultExecutionConfig(),
		Datastore: newDefaultDatastoreConfig(),
	}
}

// Validate checks every section for values the machine cannot run with.
func (cfg *Config) Validate() error {
	switch cfg.Network.Network {
	case "mainnet", "testnet":
	default:
		return fmt.Errorf("unknown network %q", cfg.Network.Network)
	}

	switch cfg.Gas.Schedule {
	case "default", "genesis", "calico":
	default:
		return fmt.Errorf("unknown gas schedule %q", cfg.Gas.Schedule)
	}

	if _, err := cfg.Execution.MaxBlockSizeBytes(); err != nil {
		return err
	}
	if cfg.Execution.MaxBlocks <= 0 {
		return fmt.Errorf("execution.maxBlocks must be positive, got %d", cfg.Execution.MaxBlocks)
	}

	switch cfg.Datastore.Type {
	case "memory":
	case "badger":
		if cfg.Datastore.Path == "" {
			return fmt.Errorf("badger datastore needs a path")
		}
	default:
		return fmt.Errorf("unknown datastore type %q", cfg.Datastore.Type)
	}
	if _, err := cfg.Datastore.CacheEntries(); err != nil {
		return err
	}
	return nil
}

// WriteFile writes the config to the given filepath.
func (cfg *Config) WriteFile(file string) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if err := toml.NewEncoder(f).Encode(*cfg); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// ReadFile reads a config file from disk. Missing keys keep their defaults.
func ReadFile(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint: errcheck

	cfg := NewDefaultConfig()
	md, err := toml.DecodeReader(f, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warnf("ignoring unknown config keys: %v", undecoded)
	}

	return cfg, nil
}

// traverseConfig contains the shared traversal logic for getting and setting
// config values.  It uses reflection to find the sub-struct referenced by `key`
// and applies a processing function to the referenced struct
func (cfg *Config) traverseConfig(key string,
	f func(reflect.Value, string) (interface{}, error)) (interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(cfg))
	keyTags := strings.Split(key, ".")
OUTER:
	for j, keyTag := range keyTags {
		switch v.Type().Kind() {
		case reflect.Struct:
			for i := 0; i < v.NumField(); i++ {
				tomlTag := strings.Split(
					v.Type().Field(i).Tag.Get("toml"),
					",")[0]
				if tomlTag == keyTag {
					v = v.Field(i)
					if j == len(keyTags)-1 {
						return f(v, key)
					}
					v = reflect.Indirect(v) // only attempt one dereference
					continue OUTER
				}
			}
		case reflect.Array, reflect.Slice:
			i64, err := strconv.ParseUint(keyTag, 0, 0)
			if err != nil {
				return nil, fmt.Errorf("non-integer key into slice")
			}
			i := int(i64)
			if i > v.Len()-1 {
				return nil, fmt.Errorf("key into slice out of range")
			}
			v = v.Index(i)
			if j == len(keyTags)-1 {
				return f(v, key)
			}
			v = reflect.Indirect(v) // only attempt one dereference
			continue OUTER
		}

		return nil, fmt.Errorf("key: %s invalid for config", key)
	}
	// Cannot get here as len(strings.Split(s, sep)) >= 1 with non-empty sep
	return nil, fmt.Errorf("empty key is invalid")
}

// prependKey includes the TOML key in the tomlVal blob necessary for correct
// marshaling.  Ordinary tables require "[key]\n" prepended.  All others,
// including inline tables, require "k = " prepended, where k is the last
// period separated substring of key.
func prependKey(tomlVal string, key string, fieldT reflect.Type) string {
	ks := strings.Split(key, ".")
	k := ks[len(ks)-1]
	fieldK := fieldT.Kind()
	if fieldK == reflect.Ptr {
		fieldK = fieldT.Elem().Kind() // only attempt one dereference
	}

	if fieldK == reflect.Struct {
		tomlVal = strings.TrimSpace(tomlVal)
		// inline table
		if strings.HasPrefix(tomlVal, "{") {
			return fmt.Sprintf("%s=%s", k, tomlVal)
		}
		return fmt.Sprintf("[%s]\n%s", k, tomlVal)
	}
	return fmt.Sprintf("%s=%s", k, tomlVal)
}

// fieldToSet calculates the reflector Value to set the config at the given key
// based on the user provided toml blob.
func fieldToSet(key string, tomlVal string, fieldT reflect.Type) (reflect.Value, error) {
	// set up a struct with this field for unmarshaling
	tomlValKey := prependKey(tomlVal, key, fieldT)
	ks := strings.Split(key, ".")
	k := ks[len(ks)-1]

	field := reflect.StructField{
		Name: "Field",
		Type: fieldT,
		Tag:  reflect.StructTag("toml:" + "\"" + k + "\""),
	}
	recvT := reflect.StructOf([]reflect.StructField{field})
	valToRecv := reflect.New(recvT)

	_, err := toml.Decode(tomlValKey, valToRecv.Interface())
	if err != nil {
		msg := fmt.Sprintf("input could not be marshaled to sub-config at: %s", key)
		return valToRecv, errors.Wrap(err, msg)
	}
	return valToRecv.Elem().Field(0), nil
}

// Set sets the config sub-struct referenced by `key`, e.g. 'execution.maxBlocks'
// or 'datastore' to the toml value encoded in tomlVal.
func (cfg *Config) Set(key string, tomlVal string) error {
	f := func(v reflect.Value, key string) (interface{}, error) {
		// dereference pointer types for marshaling
		setT := v.Type()
		var recvT reflect.Type
		if setT.Kind() == reflect.Ptr {
			recvT = setT.Elem()
		} else {
			recvT = setT
		}

		valToSet, err := fieldToSet(key, tomlVal, recvT)
		if err != nil {
			return nil, err
		}
		// add pointers back for setting
		if setT.Kind() == reflect.Ptr {
			ptr := reflect.New(recvT)
			ptr.Elem().Set(valToSet)
			valToSet = ptr
		}

		v.Set(valToSet)

		return v.Interface(), nil
	}

	_, err := cfg.traverseConfig(key, f)
	return err
}

// Get gets the config sub-struct referenced by `key`, e.g. 'execution.maxBlocks'
func (cfg *Config) Get(key string) (interface{}, error) {
	f := func(v reflect.Value, key string) (interface{}, error) {
		return v.Interface(), nil
	}

	return cfg.traverseConfig(key, f)
}
