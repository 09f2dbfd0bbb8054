package space

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rileyhilliard/ftest/internal/daos"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/ui"
)

// PoolSpec is a pool the scenario creates, keyed by its rank namespace
// ("0", "1_a", "1_2", ...).
type PoolSpec struct {
	Size  string
	Ranks []int
}

// Scenario creates pools on subsets of three single-engine servers and
// checks the df-reported space of every rank after each step.
type Scenario struct {
	Runner    remote.Runner
	Dmg       *daos.Dmg
	Daos      *daos.Daos
	Ior       *daos.Ior
	Servers   nodeset.NodeSet
	Clients   nodeset.NodeSet
	Pools     map[string]PoolSpec
	IorParams daos.IorParams
	Steps     *ui.StepLogger
	Log       logger.Logger

	// Reports holds every comparison made, in order.
	Reports []Report

	snapshots []Snapshot
	ranks     map[string][]int
	pools     []*daos.Pool
}

func (s *Scenario) log() logger.Logger {
	if s.Log == nil {
		return logger.Noop()
	}
	return s.Log
}

func (s *Scenario) steps() *ui.StepLogger {
	if s.Steps == nil {
		s.Steps = ui.NewStepLogger(nil, s.log())
	}
	return s.Steps
}

// Run executes every step. The first failed comparison or command stops it.
func (s *Scenario) Run(ctx context.Context) (err error) {
	defer func() { s.steps().Done(err) }()

	members, err := s.Dmg.SystemQuery(ctx)
	if err != nil {
		return err
	}
	s.ranks = daos.HostRanks(members, s.Servers)

	// (0) System available space equals the free space.
	if err := s.snapshot(ctx, "initial configuration w/o pools"); err != nil {
		return err
	}
	if err := s.compare(AllAvailable, AllAvailable, AllAvailable); err != nil {
		return err
	}

	type phase struct {
		description string
		namespaces  []string
		created     []Method
		blockSizes  []string
		// perPool writes each block size to its own new pool.
		perPool bool
	}
	phases := []phase{
		{"a single pool on rank 0", []string{"0"}, []Method{Reduced, Equal, Equal},
			[]string{"500M", "1M", "10M", "100M"}, false},
		{"multiple pools on rank 1", []string{"1_a", "1_b", "1_c"}, []Method{Equal, Reduced, Equal},
			[]string{"200M", "2G", "7G"}, true},
		{"a single pool on ranks 1 & 2", []string{"1_2"}, []Method{Equal, Reduced, Reduced},
			[]string{"13G", "3G", "300M"}, false},
		{"a single pool on all ranks", []string{"0_1_2"}, []Method{Reduced, Reduced, Reduced},
			[]string{"5G"}, false},
	}

	for _, p := range phases {
		first := len(s.pools)
		if err := s.createPools(ctx, p.description, p.namespaces); err != nil {
			return err
		}
		if err := s.snapshot(ctx, p.description); err != nil {
			return err
		}
		if err := s.compare(p.created...); err != nil {
			return err
		}
		if err := s.queryPools(ctx, p.description, s.pools[first:]); err != nil {
			return err
		}

		// Writing data must not change the system free space.
		var container string
		for i, bs := range p.blockSizes {
			pool := s.pools[first]
			if p.perPool {
				pool = s.pools[first+i]
			}
			if container == "" || p.perPool {
				if container, err = s.createContainer(ctx, pool); err != nil {
					return err
				}
			}
			if err := s.write(ctx, p.description, pool, container, bs); err != nil {
				return err
			}
			if err := s.snapshot(ctx, fmt.Sprintf("%s after writing %s", p.description, bs)); err != nil {
				return err
			}
			if err := s.compare(Equal, Equal, Equal); err != nil {
				return err
			}
			if err := s.queryPools(ctx, p.description, []*daos.Pool{pool}); err != nil {
				return err
			}
		}
		if _, err := s.Dmg.StorageQueryUsage(ctx); err != nil {
			return err
		}
	}

	return s.queryPools(ctx, "all pools", s.pools)
}

// Cleanup destroys the pools the scenario created.
func (s *Scenario) Cleanup(ctx context.Context) error {
	var errs []error
	for i := len(s.pools) - 1; i >= 0; i-- {
		if err := s.Dmg.PoolDestroy(ctx, s.pools[i].ID(), true, true); err != nil {
			errs = append(errs, err)
		}
	}
	s.pools = nil
	return errors.Join(errors.ErrRemote, "Failed to destroy pools", errs...)
}

// Snapshots returns the collected mount data.
func (s *Scenario) Snapshots() []Snapshot { return s.snapshots }

func (s *Scenario) snapshot(ctx context.Context, description string) error {
	s.steps().Step("Collect system-level DAOS mount information for %s", description)
	data, err := Collect(ctx, s.Runner, s.Servers, s.ranks, s.log())
	if err != nil {
		return err
	}
	s.snapshots = append(s.snapshots, Snapshot{Label: description, Data: data})
	return nil
}

func (s *Scenario) compare(methods ...Method) error {
	report, err := CompareSnapshots(s.snapshots, methods)
	if err != nil {
		return err
	}
	report.Log(s.log())
	s.Reports = append(s.Reports, report)
	if err := report.Err(); err != nil {
		s.steps().Detail(report.Render())
		return err
	}
	return nil
}

func (s *Scenario) createPools(ctx context.Context, description string, namespaces []string) error {
	s.steps().Step("Create %s", description)
	for _, ns := range namespaces {
		spec, ok := s.Pools[ns]
		if !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("No pool defined for ranks %s", ns),
				fmt.Sprintf("Add pool.namespaces.%q to .ftest.yaml", ns))
		}
		pool, err := s.Dmg.PoolCreate(ctx, spec.Size, "pool_rank_"+ns, spec.Ranks)
		if err != nil {
			return err
		}
		s.pools = append(s.pools, pool)
	}
	return nil
}

func (s *Scenario) queryPools(ctx context.Context, description string, pools []*daos.Pool) error {
	s.steps().Step("Query pool information for %s", description)
	for _, pool := range pools {
		if _, err := s.Dmg.PoolQuery(ctx, pool.ID()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) createContainer(ctx context.Context, pool *daos.Pool) (string, error) {
	c := &daos.Container{
		Pool:  pool.ID(),
		Label: "cont_" + strings.SplitN(uuid.NewString(), "-", 2)[0],
		Type:  "POSIX",
	}
	if err := s.Daos.ContainerCreate(ctx, c); err != nil {
		return "", err
	}
	return c.Label, nil
}

func (s *Scenario) write(ctx context.Context, description string, pool *daos.Pool, container, blockSize string) error {
	s.steps().Step("Writing data (%s block size) one of %s", blockSize, description)
	params := s.IorParams
	params.BlockSize = blockSize
	params.Pool = pool.ID()
	params.Container = container
	if _, err := s.Ior.Run(ctx, s.Clients, params); err != nil {
		return errors.WrapWithCode(err, errors.ErrVerify,
			fmt.Sprintf("IOR write to %s failed", description), "")
	}
	return nil
}
