// Package blob stores opaque binary objects, such as proctoring snapshots, under string keys.
package blob

import (
	"context"
	"fmt"
	"io"
)

// Store writes objects. Keys use forward slashes and never start with one.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
}

const (
	DriverFS  = "fs"
	DriverOSS = "oss"
)

type Config struct {
	Driver string
	// Dir is the root directory of the fs driver.
	Dir string
	OSS OSSConfig

	// MaxBytes limits the size of a single upload.
	MaxBytes int64
}

func DefaultConfig() Config {
	return Config{
		Driver:   DriverFS,
		Dir:      "media",
		MaxBytes: 5 << 20,
	}
}

// New builds the store selected by c.Driver.
func New(c Config) (Store, error) {
	switch c.Driver {
	case DriverFS, "":
		return NewFS(c.Dir)
	case DriverOSS:
		return NewOSS(c.OSS)
	default:
		return nil, fmt.Errorf("blob: unknown driver %q", c.Driver)
	}
}
