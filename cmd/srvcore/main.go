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

// srvcore runs the application server core from a config file, with a
// placeholder connection handler: the protocol front-end registers its
// own handler when embedding the server package instead.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	libcnp "github.com/nabbar/srvcore/connpool"
	libdbp "github.com/nabbar/srvcore/dbpool"
	liblog "github.com/nabbar/srvcore/logger"
	libsrv "github.com/nabbar/srvcore/server"
)

func main() {
	var cfgFile string

	root := &cobra.Command{
		Use:   "srvcore",
		Short: "application server concurrency core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "srvcore.yaml", "config file path")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	cfg, err := libsrv.Load(cfgFile)
	if err != nil {
		return err
	}

	log := liblog.New(&cfg.Logger)
	defer log.Close()

	srv, err := libsrv.New(*cfg, libsrv.Handler{
		Conn: func(ctx context.Context, c libcnp.Conn) {
			// protocol handling is the front-end's concern
			c.SetStatus(200)
		},
		Abort: func() {
			log.Error("server abort signalled by connection pool")
			p, _ := os.FindProcess(os.Getpid())
			p.Signal(syscall.SIGTERM)
		},
	}, map[string]libdbp.Driver{
		"mysql": libdbp.NewSQLDriver("mysql", nil),
	}, liblog.Provider(log))

	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = srv.Start(ctx); err != nil {
		return err
	}

	log.Info("server core started")
	<-ctx.Done()
	log.Info("server core stopping")

	return asStd(srv.Stop(context.Background()))
}

func asStd(err error) error {
	if err == nil {
		return nil
	}

	return err
}
