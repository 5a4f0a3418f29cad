//go:build mage

package main

import (
	"fmt"
	"os"

	_ "github.com/kralicky/streamrelay/pkg/logger"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

// Builds all main packages under ./cmd/...
func Build() error {
	return sh.RunV(mg.GoCmd(), "build", fmt.Sprintf("-v=%t", mg.Verbose()), "-o", "bin/", "./cmd/...")
}

// Runs all tests
func Test() error {
	return sh.RunV(mg.GoCmd(), "test", "-v", "-race", "./...")
}

type Example mg.Namespace

// Generates a sample CA, server certificate, and client certificate for
// running the relay server with tls.
func (Example) Certs() error {
	os.RemoveAll("examples/certs")
	if err := os.MkdirAll("examples/certs", 0755); err != nil {
		return err
	}
	commonArgs := []string{
		"-f", "--kty=OKP", "--curve=Ed25519", "--no-password", "--insecure",
	}
	ca := []string{"--ca=examples/certs/ca.crt", "--ca-key=examples/certs/ca.key"}
	certs := [][]string{
		{"Example CA", "examples/certs/ca.crt", "examples/certs/ca.key", "--profile=root-ca"},
		append([]string{"Stream Relay", "examples/certs/server.crt", "examples/certs/server.key", "--san=localhost", "--san=127.0.0.1", "--profile=leaf"}, ca...),
		append([]string{"operator", "examples/certs/operator.crt", "examples/certs/operator.key", "--profile=leaf"}, ca...),
	}

	for _, certArgs := range certs {
		args := []string{"certificate", "create"}
		args = append(args, certArgs...)
		args = append(args, commonArgs...)
		if err := sh.RunV("step", args...); err != nil {
			return err
		}
	}
	return nil
}
