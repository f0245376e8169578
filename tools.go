//go:build tools

package tools

// Pins the mockery version used to regenerate pkg/transport/mocks.
// Run: go generate ./pkg/transport
import (
	_ "github.com/vektra/mockery/v2"
)
