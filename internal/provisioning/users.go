package provisioning

import (
	"context"

	"github.com/opnsense-tools/opnvpn/internal/opnsense"
	"github.com/opnsense-tools/opnvpn/internal/resolve"
)

// UsersPhase ensures every configured account exists. Existing accounts are
// left untouched, so a changed password in the configuration does not
// propagate to an already-provisioned user.
type UsersPhase struct{}

func (p *UsersPhase) Name() string { return "users" }

func (p *UsersPhase) Provision(ctx *Context) error {
	if ctx.State.GroupGID == "" {
		return &MissingDependencyError{Field: "group-gid"}
	}

	for _, user := range ctx.Users {
		_, created, err := resolve.Resolve(ctx, "user",
			ctx.API.SearchUsers,
			func(r opnsense.UserRow) bool { return r.Name == user.Name },
			resolve.First[opnsense.UserRow],
			func(c context.Context) error {
				_, err := ctx.API.AddUser(c, opnsense.UserPayload{
					Name:     user.Name,
					Password: user.Password,
					FullName: user.FullName,
					Email:    user.Email,
					Member:   ctx.State.GroupGID,
				})
				return err
			},
			resolve.Options{},
		)
		if err != nil {
			return err
		}
		ctx.Observer.Resource("user", user.Name, created)
	}
	return nil
}
