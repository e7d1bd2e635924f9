package opnsense

import "context"

// Endpoints of the core auth API (groups and local users).
const (
	pathGroupSearch = "/api/auth/group/search"
	pathGroupAdd    = "/api/auth/group/add"
	pathUserSearch  = "/api/auth/user/search"
	pathUserAdd     = "/api/auth/user/add"
)

// GroupRow is one row of the group listing.
type GroupRow struct {
	UUID        string `json:"uuid"`
	GID         string `json:"gid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Reference prefers the UUID over the numeric gid.
func (r GroupRow) Reference() (Reference, error) {
	return refFrom("", r.UUID, r.GID)
}

// UserRow is one row of the local-user listing.
type UserRow struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	FullName string `json:"descr"`
	Email    string `json:"email"`
}

func (r UserRow) Reference() (Reference, error) {
	return refFrom("", r.UUID, "")
}

// GroupPayload is the body of a group creation.
type GroupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserPayload is the body of a user creation. Member is the gid of the
// access-control group the user joins.
type UserPayload struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	FullName string `json:"descr"`
	Email    string `json:"email"`
	Member   string `json:"group_memberships"`
}

func (c *Client) SearchGroups(ctx context.Context) ([]GroupRow, error) {
	return search[GroupRow](ctx, c, pathGroupSearch)
}

func (c *Client) AddGroup(ctx context.Context, p GroupPayload) (*AddResult, error) {
	return c.add(ctx, pathGroupAdd, map[string]GroupPayload{"group": p})
}

func (c *Client) SearchUsers(ctx context.Context) ([]UserRow, error) {
	return search[UserRow](ctx, c, pathUserSearch)
}

func (c *Client) AddUser(ctx context.Context, p UserPayload) (*AddResult, error) {
	return c.add(ctx, pathUserAdd, map[string]UserPayload{"user": p})
}
