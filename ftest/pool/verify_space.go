// Package pool holds the pool functional tests.
package pool

import (
	"context"
	_ "embed"

	"github.com/rileyhilliard/ftest/internal/suite"
)

//go:embed verify_space.yaml
var verifySpaceParams []byte

// VerifyPoolSpace checks the system-level space DAOS reports through df as
// pools are created on different ranks and filled with data.
type VerifyPoolSpace struct{}

func (s *VerifyPoolSpace) Name() string   { return "VerifyPoolSpace" }
func (s *VerifyPoolSpace) Params() []byte { return verifySpaceParams }

func (s *VerifyPoolSpace) Tests() []suite.Test {
	return []suite.Test{{Name: "TestVerifyPoolSpace", Run: s.TestVerifyPoolSpace}}
}

// TestVerifyPoolSpace verifies the free space of every rank's tmpfs mount
// drops only when a pool is created on that rank and never while data is
// written into an existing pool.
//
// :avocado: tags=all,full_regression
// :avocado: tags=hw,medium
// :avocado: tags=pool
// :avocado: tags=VerifyPoolSpace,TestVerifyPoolSpace
func (s *VerifyPoolSpace) TestVerifyPoolSpace(ctx context.Context, env *suite.Env) error {
	if env.Servers.Len() != 3 {
		return suite.Skipf("needs 3 single-engine servers, have %s", env.Servers)
	}
	scenario, err := env.Space()
	if err != nil {
		return err
	}
	defer func() {
		if err := scenario.Cleanup(context.WithoutCancel(ctx)); err != nil {
			env.Log.Warn("Pool cleanup failed: %v", err)
		}
	}()
	return scenario.Run(ctx)
}
