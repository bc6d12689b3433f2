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

package dbpool_test

import (
	"context"

	"github.com/DATA-DOG/go-sqlmock"

	. "github.com/nabbar/srvcore/dbpool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SQL Driver Adapter", func() {
	It("should open, ping and close through database/sql", func() {
		db, mock, err := sqlmock.NewWithDSN("srvcore_dsn", sqlmock.MonitorPingsOption(true))
		Expect(err).To(BeNil())

		// the adapter opens its own handle on the registered mock driver;
		// the bootstrap db only pins the registration
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectClose()

		drv := NewSQLDriver("sqlmock", func(datasource, user, password string) string {
			return "srvcore_dsn"
		})

		Expect(drv.Name()).To(Equal("sqlmock"))

		cnn, err := drv.Open(context.Background(), "ignored", "", "")
		Expect(err).To(BeNil())

		sc, ok := cnn.(SQLConn)
		Expect(ok).To(BeTrue())
		Expect(sc.DB()).ToNot(BeNil())

		Expect(cnn.Reset(context.Background())).To(BeNil())
		Expect(cnn.Close()).To(BeNil())
	})

	It("should report the mysql driver name", func() {
		drv := NewSQLDriver("mysql", nil)
		Expect(drv.Name()).To(Equal("mysql"))
	})
})
