package am

import (
	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/filestore"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to DefaultDatabasePath

	// Busy timeout: 0 = driver default, negative = invalid
	if c.Database.BusyTimeoutMS < 0 {
		return errors.Newf("database.busy_timeout_ms must be >= 0, got %d", c.Database.BusyTimeoutMS)
	}

	if _, err := filestore.CodecFor(c.Files.Codec); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "files.codec"),
			"supported codecs: json, cbor, raw")
	}

	if c.Log.Verbosity < 0 {
		return errors.Newf("log.verbosity must be >= 0, got %d", c.Log.Verbosity)
	}

	return nil
}
