// Package config loads connection settings from a config.toml file.
//
// The file holds either a [connection] table or the same keys at the top level:
//
//	[connection]
//	host = "localhost"
//	port = 4455
//	password = "mystrongpass"
//	subs = "low,input_volume_meters"
//	timeout = 3
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/guseggert/obsws/client"
	"github.com/guseggert/obsws/client/protocol"
	"github.com/guseggert/obsws/internal/files"
)

const FileName = "config.toml"

type Connection struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Password string   `toml:"password"`
	Subs     Subs     `toml:"subs"`
	Timeout  Duration `toml:"timeout"`
	Secure   bool     `toml:"secure"`
}

// Params converts the settings to connection parameters. Unset values are left zero so the client applies its defaults.
func (c Connection) Params() client.ConnectionParameters {
	return client.ConnectionParameters{
		Host:     c.Host,
		Port:     c.Port,
		Password: c.Password,
		Subs:     protocol.Subs(c.Subs),
		Timeout:  time.Duration(c.Timeout),
		Secure:   c.Secure,
	}
}

// Subs accepts either a bitmask integer or a list of category names such as "low,input_volume_meters".
type Subs protocol.Subs

func (s *Subs) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		if x < 0 {
			return fmt.Errorf("negative subs %d", x)
		}
		*s = Subs(x)
	case string:
		subs, err := protocol.ParseSubs(x)
		if err != nil {
			return err
		}
		*s = Subs(subs)
	default:
		return fmt.Errorf("subs must be an integer or a string, got %T", v)
	}
	return nil
}

// Duration accepts a number of seconds or a duration string such as "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		*d = Duration(time.Duration(x) * time.Second)
	case float64:
		*d = Duration(x * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("timeout must be a number of seconds or a duration string, got %T", v)
	}
	return nil
}

type document struct {
	Connection
	Table *Connection `toml:"connection"`
}

// Load reads connection settings from path.
func Load(path string) (Connection, error) {
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return Connection{}, fmt.Errorf("loading %s: %w", path, err)
	}
	if doc.Table != nil {
		return *doc.Table, nil
	}
	return doc.Connection, nil
}

// Find returns the first config file found, or "" if there is none.
// It looks in dir and its parents, then in the home directory, then in ~/.config/obsws.
func Find(dir string) (string, error) {
	path, err := files.FindUp(FileName, dir)
	if err != nil || path != "" {
		return path, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	return files.FirstExisting(
		filepath.Join(home, FileName),
		filepath.Join(home, ".config", "obsws", FileName),
	)
}

// Discover loads the file at path, or if path is empty, the first file found by Find starting at the working directory.
// It returns the path that was loaded, which is empty if no file was found.
func Discover(path string) (Connection, string, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Connection{}, "", fmt.Errorf("getting working directory: %w", err)
		}
		path, err = Find(wd)
		if err != nil {
			return Connection{}, "", err
		}
		if path == "" {
			return Connection{}, "", nil
		}
	}
	conn, err := Load(path)
	if err != nil {
		return Connection{}, "", err
	}
	return conn, path, nil
}
