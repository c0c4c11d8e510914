package dialect

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DefaultPostgresPort is the Postgres and Greenplum listen port.
const DefaultPostgresPort = 5432

// socketPrefix is the file name prefix libpq gives server sockets.
const socketPrefix = ".s.PGSQL."

func init() {
	Register("postgres", &postgres{})
}

// PostgreSQL dialect backed by lib/pq
type postgres struct{}

func (d *postgres) Name() string { return "postgres" }

func (d *postgres) DefaultPort() int { return DefaultPostgresPort }

func (d *postgres) BindType() int { return sqlx.DOLLAR }

func (d *postgres) DSN(p Params) string {
	return keywordDSN(p)
}

func (d *postgres) IsConnectivityError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isConnectivityState(string(pqErr.Code))
	}
	return IsBrokenConn(err)
}

// keywordDSN builds a libpq keyword/value connection string. Both lib/pq and
// pgx accept it.
func keywordDSN(p Params) string {
	var parts []string
	add := func(key, value string) {
		parts = append(parts, key+"="+quoteDSNValue(value))
	}

	add("dbname", p.Database)
	if p.User != "" {
		add("user", p.User)
	}
	if p.Password != "" {
		add("password", p.Password)
	}

	if p.Socket != "" {
		dir, port := socketDir(p.Socket)
		add("host", dir)
		if port != "" {
			add("port", port)
		}
	} else {
		add("host", p.Host)
		add("port", strconv.Itoa(p.Port))
	}
	return strings.Join(parts, " ")
}

// socketDir turns a socket path into the directory libpq expects. A path that
// names the socket file itself also yields the port encoded in its name.
func socketDir(path string) (dir, port string) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, socketPrefix) {
		return filepath.Dir(path), strings.TrimPrefix(base, socketPrefix)
	}
	return path, ""
}

func quoteDSNValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// isConnectivityState covers SQLSTATE class 08 (connection exception) and the
// operator-intervention codes sent when the server goes away.
func isConnectivityState(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case "57P01", "57P02", "57P03":
		return true
	}
	return false
}
