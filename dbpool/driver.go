/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package dbpool

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn is one live driver connection bound to a handle.
type Conn interface {
	// Ping verifies the connection liveness.
	Ping(ctx context.Context) error

	// Reset clears driver-specific session state on handle return.
	Reset(ctx context.Context) error

	// Close tears the connection down.
	Close() error
}

// Driver opens connections for a pool.
type Driver interface {
	// Name returns the registered driver name.
	Name() string

	// Open connects to the datasource.
	Open(ctx context.Context, datasource, user, password string) (Conn, error)
}

// SQLConn is the database/sql-backed Conn, exposing the DB for query use.
type SQLConn interface {
	Conn

	// DB returns the underlying database handle.
	DB() *sql.DB
}

type sqlConn struct {
	db *sql.DB
}

func (o *sqlConn) DB() *sql.DB {
	return o.db
}

func (o *sqlConn) Ping(ctx context.Context) error {
	return o.db.PingContext(ctx)
}

func (o *sqlConn) Reset(ctx context.Context) error {
	// database/sql resets session state when the single pooled
	// connection cycles; nothing to clear here
	return nil
}

func (o *sqlConn) Close() error {
	return o.db.Close()
}

type sqlDriver struct {
	drv string
	dsn func(datasource, user, password string) string
}

func (o *sqlDriver) Name() string {
	return o.drv
}

func (o *sqlDriver) Open(ctx context.Context, datasource, user, password string) (Conn, error) {
	db, err := sql.Open(o.drv, o.dsn(datasource, user, password))
	if err != nil {
		return nil, err
	}

	// one handle is one connection: the pool above does the pooling
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlConn{db: db}, nil
}

// NewSQLDriver wraps a registered database/sql driver. The dsn function
// composes the driver source name; nil selects the mysql-style
// "user:password@datasource" form.
func NewSQLDriver(driverName string, dsn func(datasource, user, password string) string) Driver {
	if dsn == nil {
		dsn = func(datasource, user, password string) string {
			if user == "" {
				return datasource
			}

			return fmt.Sprintf("%s:%s@%s", user, password, datasource)
		}
	}

	return &sqlDriver{
		drv: driverName,
		dsn: dsn,
	}
}
