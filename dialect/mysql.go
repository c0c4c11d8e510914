package dialect

import (
	"errors"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// DefaultMySQLPort is the MySQL listen port.
const DefaultMySQLPort = 3306

func init() {
	Register("mysql", &mysqlDialect{})
}

// MySQL dialect implementation
type mysqlDialect struct{}

func (d *mysqlDialect) Name() string { return "mysql" }

func (d *mysqlDialect) DefaultPort() int { return DefaultMySQLPort }

func (d *mysqlDialect) BindType() int { return sqlx.QUESTION }

func (d *mysqlDialect) DSN(p Params) string {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.DBName = p.Database
	if p.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = p.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	return cfg.FormatDSN()
}

func (d *mysqlDialect) IsConnectivityError(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1053, // ER_SERVER_SHUTDOWN
			2006, // CR_SERVER_GONE_ERROR
			2013: // CR_SERVER_LOST
			return true
		}
		return false
	}
	return IsBrokenConn(err)
}
