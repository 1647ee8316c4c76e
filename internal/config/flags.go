package config

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// Flags holds all command line flag values
type Flags struct {
	configFile *string
	version    *bool

	serverPort *int
	serverHost *string

	dbType       *string
	dbSQLitePath *string

	caCertPath       *string
	caKeyPath        *string
	caPassphrasePath *string

	tokenSecret *string

	logLevel  *string
	logFormat *string
}

// ParseFlags defines and parses all command line flags
func ParseFlags() (*Flags, string, bool) {
	f := &Flags{}

	f.configFile = flag.StringP("config", "c", "config.yaml", "Path to configuration file")
	f.version = flag.BoolP("version", "v", false, "Print version and exit")

	f.serverPort = flag.Int("server.port", 0, "HTTP server port")
	f.serverHost = flag.String("server.host", "", "HTTP server bind address")

	f.dbType = flag.String("db.type", "", "Database type (sqlite or postgres)")
	f.dbSQLitePath = flag.String("db.sqlite.path", "", "SQLite database file path")

	f.caCertPath = flag.String("ca.cert", "", "Path to CA certificate PEM")
	f.caKeyPath = flag.String("ca.key", "", "Path to CA private key PEM")
	f.caPassphrasePath = flag.String("ca.passphrase-file", "", "Path to CA key passphrase file")

	f.tokenSecret = flag.String("token.secret", "", "Secret used to sign bearer tokens")

	f.logLevel = flag.StringP("log.level", "l", "", "Log level (debug, info, warn, error)")
	f.logFormat = flag.String("log.format", "", "Log format (json or console)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "certM3 - email-verified client certificate issuance service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration priority (highest to lowest):\n")
		fmt.Fprintf(os.Stderr, "  1. Command line flags\n")
		fmt.Fprintf(os.Stderr, "  2. Environment variables (CERTM3_*)\n")
		fmt.Fprintf(os.Stderr, "  3. Configuration file (default: config.yaml)\n")
	}

	flag.Parse()

	return f, *f.configFile, *f.version
}

func (f *Flags) configFileSet() bool {
	return flag.Lookup("config").Changed
}

// apply overrides config values with any flags the user set.
func (f *Flags) apply(c *Config) {
	if flag.Lookup("server.port").Changed {
		c.Server.Port = *f.serverPort
	}
	if flag.Lookup("server.host").Changed {
		c.Server.Host = *f.serverHost
	}
	if flag.Lookup("db.type").Changed {
		c.Database.Type = *f.dbType
	}
	if flag.Lookup("db.sqlite.path").Changed {
		c.Database.SQLite.Path = *f.dbSQLitePath
	}
	if flag.Lookup("ca.cert").Changed {
		c.CA.CertPath = *f.caCertPath
	}
	if flag.Lookup("ca.key").Changed {
		c.CA.KeyPath = *f.caKeyPath
	}
	if flag.Lookup("ca.passphrase-file").Changed {
		c.CA.PassphrasePath = *f.caPassphrasePath
	}
	if flag.Lookup("token.secret").Changed {
		c.Token.Secret = *f.tokenSecret
	}
	if flag.Lookup("log.level").Changed {
		c.Logging.Level = *f.logLevel
	}
	if flag.Lookup("log.format").Changed {
		c.Logging.Format = *f.logFormat
	}
}
