package cli

import (
	stdcontext "context"
	"errors"

	"github.com/portside/portside/internal/api"
	"github.com/portside/portside/internal/proctree"
	"github.com/portside/portside/internal/project"
	"github.com/portside/portside/internal/sanitize"
	"github.com/portside/portside/internal/supervise"
)

// ControlAPI exposes supervisor operations to the HTTP control plane.
type ControlAPI struct {
	ctx *context
}

// NewControlAPI constructs a ControlAPI wrapper around the shared CLI
// context.
func NewControlAPI(ctx *context) *ControlAPI {
	if ctx == nil {
		return nil
	}
	return &ControlAPI{ctx: ctx}
}

func (c *ControlAPI) Spawn(ctx stdcontext.Context, req api.SpawnRequest) (*api.SpawnResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	sup, err := c.ctx.supervisor()
	if err != nil {
		return nil, err
	}
	return sup.spawn(supervise.Request{
		Command: req.Command,
		Args:    req.Args,
		Dir:     req.Dir,
		Token:   req.Token,
	})
}

func (c *ControlAPI) KillTree(ctx stdcontext.Context, pid int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := sanitize.PID(pid); err != nil {
		return err
	}
	sup, err := c.ctx.supervisor()
	if err != nil {
		return err
	}
	return sup.killTree(pid)
}

func (c *ControlAPI) FindPort(ctx stdcontext.Context, pid int) (*api.PortResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := sanitize.PID(pid); err != nil {
		return nil, err
	}
	sup, err := c.ctx.supervisor()
	if err != nil {
		return nil, err
	}
	return sup.findPort(pid)
}

func (c *ControlAPI) Projects(ctx stdcontext.Context) ([]project.Project, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	sup, err := c.ctx.supervisor()
	if err != nil {
		return nil, err
	}
	return sup.projects()
}

func (c *ControlAPI) Status(ctx stdcontext.Context) (*api.StatusReport, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	sup, err := c.ctx.supervisor()
	if err != nil {
		return nil, err
	}
	return sup.status(), nil
}

func (c *ControlAPI) Subscribe() (<-chan supervise.Event, func()) {
	sup, err := c.ctx.supervisor()
	if err != nil {
		ch := make(chan supervise.Event)
		close(ch)
		return ch, func() {}
	}
	return sup.subscribe(0)
}

func ctxErr(ctx stdcontext.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func isRejection(err error) bool {
	return errors.Is(err, sanitize.ErrRejected)
}

func isNotFound(err error) bool {
	return errors.Is(err, proctree.ErrNotFound)
}

var _ api.Controller = (*ControlAPI)(nil)
