package github

import (
	"context"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// Organizations lists login's public organizations, or every organization
// of the authenticated user when login is empty.
func (s *Service) Organizations(ctx context.Context, login string, limit int) ([]core.Organization, error) {
	spec := engine.Get(userPath(login, "/user/orgs", "orgs"), nil)
	return list[core.Organization](ctx, s, spec, limit, "")
}

// Members lists org's members. role is all, admin or member.
func (s *Service) Members(ctx context.Context, org, role string, limit int) ([]core.User, error) {
	spec := engine.Get(buildPath("orgs", org, "members"), query("role", role))
	return list[core.User](ctx, s, spec, limit, "")
}

// Teams lists org's teams visible to the authenticated user.
func (s *Service) Teams(ctx context.Context, org string, limit int) ([]core.Team, error) {
	spec := engine.Get(buildPath("orgs", org, "teams"), nil)
	return list[core.Team](ctx, s, spec, limit, "")
}

// TeamMembers lists the members of team slug in org.
func (s *Service) TeamMembers(ctx context.Context, org, slug string, limit int) ([]core.User, error) {
	spec := engine.Get(buildPath("orgs", org, "teams", slug, "members"), nil)
	return list[core.User](ctx, s, spec, limit, "")
}
