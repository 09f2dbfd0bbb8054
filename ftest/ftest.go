// Package ftest registers the functional test suites run by 'ftest test'.
package ftest

import (
	"github.com/rileyhilliard/ftest/ftest/interoperability"
	"github.com/rileyhilliard/ftest/ftest/pool"
	"github.com/rileyhilliard/ftest/internal/suite"
)

// Suites returns every registered suite.
func Suites() []suite.Suite {
	return []suite.Suite{
		&interoperability.AgentServerInteropTest{},
		&interoperability.UpgradeDowngradeTest{},
		&pool.VerifyPoolSpace{},
	}
}
