//go:build tools
// +build tools

// Package greeter фиксирует в go.mod инструменты для go generate (mockgen).
package greeter

import (
	_ "go.uber.org/mock/mockgen"
)
