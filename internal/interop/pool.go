package interop

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/rileyhilliard/ftest/internal/daos"
)

const attrChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func shortID(prefix string) string {
	return prefix + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// CreatePool creates a pool of the configured size with a unique label.
func (h *Harness) CreatePool(ctx context.Context) (*daos.Pool, error) {
	return h.Dmg.PoolCreate(ctx, h.Opts.PoolSize, shortID("pool_"), nil)
}

// DestroyPool destroys pool, recursively when the current client supports
// it.
func (h *Harness) DestroyPool(ctx context.Context, pool *daos.Pool, force bool) error {
	return h.Dmg.PoolDestroy(ctx, pool.ID(), force, daos.SupportsDestroyRecursive(h.CurrentClient))
}

// CreateContainer creates a container in pool with the form the current
// client accepts.
func (h *Harness) CreateContainer(ctx context.Context, pool *daos.Pool) (*daos.Container, error) {
	c := &daos.Container{
		Pool:       pool.ID(),
		Label:      shortID("cont_"),
		Type:       h.Opts.ContainerType,
		Properties: h.Opts.ContainerProperties,
	}
	h.Daos.ClientVersion = h.CurrentClient
	if err := h.Daos.ContainerCreate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DestroyContainer destroys c.
func (h *Harness) DestroyContainer(ctx context.Context, c *daos.Container) error {
	return h.Daos.ContainerDestroy(ctx, c.Pool, c.Label, true)
}

// CreateAttrs returns n attributes named attr00, attr01, ... with random
// values of 1 to 10 characters.
func (h *Harness) CreateAttrs(n int) map[string]string {
	attrs := make(map[string]string, n)
	for i := 0; i < n; i++ {
		size := h.Rand.Intn(10) + 1
		b := make([]byte, size)
		for j := range b {
			b[j] = attrChars[h.Rand.Intn(len(attrChars))]
		}
		attrs[fmt.Sprintf("attr%02d", i)] = string(b)
	}
	return attrs
}

// PoolSetAttrs sets attrs on pool from the first client.
func (h *Harness) PoolSetAttrs(ctx context.Context, pool *daos.Pool, attrs map[string]string) error {
	h.Daos.ClientVersion = h.CurrentClient
	if err := h.Daos.PoolSetAttrs(ctx, pool.ID(), attrs); err != nil {
		return failf("Failed to set pool attributes: %v", firstLineOf(err))
	}
	return nil
}

// PoolListAttrs lists the attributes of pool from the first client.
func (h *Harness) PoolListAttrs(ctx context.Context, pool *daos.Pool) (map[string]string, error) {
	attrs, err := h.Daos.PoolListAttrs(ctx, pool.ID())
	if err != nil {
		return nil, failf("Failed to list pool attributes: %v", firstLineOf(err))
	}
	return attrs, nil
}

// VerifyPoolAttrs checks that the listed attributes equal expected.
func (h *Harness) VerifyPoolAttrs(ctx context.Context, pool *daos.Pool, expected map[string]string) error {
	listed, err := h.PoolListAttrs(ctx, pool)
	if err != nil {
		return err
	}
	h.Log.Info("==Verifying list_attr output:")
	h.Log.Info("  attributes from set-attr:  %v", expected)
	h.Log.Info("  attributes from list-attr:  %v", listed)
	if !reflect.DeepEqual(expected, listed) {
		return failf("pool attrs from set-attr do not match list-attr")
	}
	return nil
}

// VerifyServerClientComm lists and queries pool from both tools.
func (h *Harness) VerifyServerClientComm(ctx context.Context, pool *daos.Pool) error {
	if _, err := h.Dmg.PoolList(ctx, true); err != nil {
		return err
	}
	if _, err := h.Dmg.PoolQuery(ctx, pool.ID()); err != nil {
		return err
	}
	_, err := h.Daos.PoolQuery(ctx, pool.ID())
	return err
}

func firstLineOf(err error) string {
	msg := strings.TrimPrefix(err.Error(), "✗ ")
	line, _, _ := strings.Cut(msg, "\n")
	return line
}
