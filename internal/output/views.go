package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mygh/mygh/internal/core"
)

const dateLayout = "2006-01-02"

// Repositories renders a repository listing.
func Repositories(repos []core.Repository) Dataset {
	if repos == nil {
		repos = []core.Repository{}
	}
	ds := Dataset{
		Header: table.Row{"Name", "Description", "Language", "Stars", "Forks", "Visibility", "Updated"},
		Wide:   []string{"Description"},
		Data:   repos,
	}
	for _, r := range repos {
		ds.Rows = append(ds.Rows, table.Row{
			r.FullName,
			r.Description,
			r.Language,
			r.StargazersCount,
			r.ForksCount,
			visibility(r),
			formatDate(r.UpdatedAt),
		})
	}
	return ds
}

// RepositoryDetails renders one repository as key/value rows.
func RepositoryDetails(r core.Repository) Dataset {
	pushed := ""
	if r.PushedAt != nil {
		pushed = formatDate(*r.PushedAt)
	}
	return KeyValues(r.FullName, r, [][2]string{
		{"Description", r.Description},
		{"Language", r.Language},
		{"Visibility", visibility(r)},
		{"Default branch", r.DefaultBranch},
		{"Stars", strconv.Itoa(r.StargazersCount)},
		{"Watchers", strconv.Itoa(r.WatchersCount)},
		{"Forks", strconv.Itoa(r.ForksCount)},
		{"Open issues", strconv.Itoa(r.OpenIssuesCount)},
		{"Size (KB)", strconv.Itoa(r.Size)},
		{"Created", formatDate(r.CreatedAt)},
		{"Pushed", pushed},
		{"URL", r.HTMLURL},
		{"Clone", r.CloneURL},
	})
}

// User renders a user profile as key/value rows.
func User(u core.User) Dataset {
	created := ""
	if u.CreatedAt != nil {
		created = formatDate(*u.CreatedAt)
	}
	return KeyValues(u.Login, u, [][2]string{
		{"Name", u.Name},
		{"Type", u.Type},
		{"Company", u.Company},
		{"Location", u.Location},
		{"Email", u.Email},
		{"Blog", u.Blog},
		{"Bio", u.Bio},
		{"Public repos", optionalInt(u.PublicRepos)},
		{"Public gists", optionalInt(u.PublicGists)},
		{"Followers", optionalInt(u.Followers)},
		{"Following", optionalInt(u.Following)},
		{"Created", created},
		{"URL", u.HTMLURL},
	})
}

// Users renders a user listing, such as search results or org members.
func Users(users []core.User) Dataset {
	if users == nil {
		users = []core.User{}
	}
	ds := Dataset{
		Header: table.Row{"Login", "Type", "URL"},
		Data:   users,
	}
	for _, u := range users {
		ds.Rows = append(ds.Rows, table.Row{u.Login, u.Type, u.HTMLURL})
	}
	return ds
}

// Gists renders a gist listing.
func Gists(gists []core.Gist) Dataset {
	if gists == nil {
		gists = []core.Gist{}
	}
	ds := Dataset{
		Header: table.Row{"ID", "Description", "Files", "Visibility", "Updated"},
		Wide:   []string{"Description"},
		Data:   gists,
	}
	for _, g := range gists {
		visibility := "secret"
		if g.Public {
			visibility = "public"
		}
		ds.Rows = append(ds.Rows, table.Row{g.ID, g.Description, len(g.Files), visibility, formatDate(g.UpdatedAt)})
	}
	return ds
}

// Issues renders an issue listing.
func Issues(issues []core.Issue) Dataset {
	if issues == nil {
		issues = []core.Issue{}
	}
	ds := Dataset{
		Header: table.Row{"#", "Title", "State", "Author", "Labels", "Comments", "Updated"},
		Wide:   []string{"Title"},
		Data:   issues,
	}
	for _, i := range issues {
		ds.Rows = append(ds.Rows, table.Row{
			i.Number,
			i.Title,
			i.State,
			i.User.Login,
			labelNames(i.Labels),
			i.Comments,
			formatDate(i.UpdatedAt),
		})
	}
	return ds
}

// PullRequests renders a pull request listing.
func PullRequests(pulls []core.PullRequest) Dataset {
	if pulls == nil {
		pulls = []core.PullRequest{}
	}
	ds := Dataset{
		Header: table.Row{"#", "Title", "State", "Author", "Branch", "Updated"},
		Wide:   []string{"Title"},
		Data:   pulls,
	}
	for _, p := range pulls {
		state := p.State
		if p.Draft && state == "open" {
			state = "draft"
		}
		ds.Rows = append(ds.Rows, table.Row{
			p.Number,
			p.Title,
			state,
			p.User.Login,
			fmt.Sprintf("%s -> %s", p.Head.Ref, p.Base.Ref),
			formatDate(p.UpdatedAt),
		})
	}
	return ds
}

// Organizations renders an organization listing.
func Organizations(orgs []core.Organization) Dataset {
	if orgs == nil {
		orgs = []core.Organization{}
	}
	ds := Dataset{
		Header: table.Row{"Login", "Description"},
		Wide:   []string{"Description"},
		Data:   orgs,
	}
	for _, o := range orgs {
		ds.Rows = append(ds.Rows, table.Row{o.Login, o.Description})
	}
	return ds
}

// Teams renders an organization's teams.
func Teams(teams []core.Team) Dataset {
	if teams == nil {
		teams = []core.Team{}
	}
	ds := Dataset{
		Header: table.Row{"Slug", "Name", "Privacy", "Description"},
		Wide:   []string{"Description"},
		Data:   teams,
	}
	for _, t := range teams {
		ds.Rows = append(ds.Rows, table.Row{t.Slug, t.Name, t.Privacy, t.Description})
	}
	return ds
}

// RateLimits renders quota states. now drives the "resets in" column.
func RateLimits(states []core.RateLimitState, now time.Time) Dataset {
	if states == nil {
		states = []core.RateLimitState{}
	}
	ds := Dataset{
		Header: table.Row{"Resource", "Limit", "Used", "Remaining", "Resets"},
		Data:   states,
	}
	for _, s := range states {
		remaining := strconv.Itoa(s.Remaining)
		if s.Remaining < 0 {
			remaining = "unknown"
		}
		ds.Rows = append(ds.Rows, table.Row{s.Resource, s.Limit, s.Used, remaining, ResetDescription(s.ResetAt, now)})
	}
	return ds
}

// ResetDescription renders a reset instant for humans, e.g.
// "15:04:05 (in 12m30s)".
func ResetDescription(reset, now time.Time) string {
	if reset.IsZero() {
		return ""
	}
	local := reset.Local().Format("15:04:05")
	wait := reset.Sub(now).Round(time.Second)
	if wait <= 0 {
		return local + " (passed)"
	}
	return fmt.Sprintf("%s (in %s)", local, wait)
}

// KeyValues renders pairs as rows, skipping empty values. data is what
// JSON output encodes.
func KeyValues(title string, data any, pairs [][2]string) Dataset {
	ds := Dataset{
		Title:  title,
		Header: table.Row{"Field", "Value"},
		Wide:   []string{"Value"},
		Data:   data,
	}
	for _, pair := range pairs {
		if pair[1] == "" {
			continue
		}
		ds.Rows = append(ds.Rows, table.Row{pair[0], pair[1]})
	}
	return ds
}

func visibility(r core.Repository) string {
	parts := []string{"public"}
	if r.Private {
		parts[0] = "private"
	}
	if r.Fork {
		parts = append(parts, "fork")
	}
	if r.Archived {
		parts = append(parts, "archived")
	}
	return strings.Join(parts, ", ")
}

func labelNames(labels []core.Label) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// PullRequestDetails renders one pull request as key/value rows.
func PullRequestDetails(p core.PullRequest) Dataset {
	state := p.State
	switch {
	case p.Merged:
		state = "merged"
	case p.Draft && state == "open":
		state = "draft"
	}
	return KeyValues(fmt.Sprintf("#%d %s", p.Number, p.Title), p, [][2]string{
		{"State", state},
		{"Author", p.User.Login},
		{"Branch", fmt.Sprintf("%s -> %s", p.Head.Ref, p.Base.Ref)},
		{"Labels", labelNames(p.Labels)},
		{"Comments", strconv.Itoa(p.Comments)},
		{"Changes", fmt.Sprintf("+%d -%d in %d files", p.Additions, p.Deletions, p.ChangedFiles)},
		{"Created", formatDate(p.CreatedAt)},
		{"Updated", formatDate(p.UpdatedAt)},
		{"URL", p.HTMLURL},
		{"Body", p.Body},
	})
}

// Notifications renders inbox threads.
func Notifications(items []core.Notification) Dataset {
	if items == nil {
		items = []core.Notification{}
	}
	ds := Dataset{
		Header: table.Row{"Repository", "Type", "Title", "Reason", "Unread", "Updated"},
		Wide:   []string{"Title"},
		Data:   items,
	}
	for _, n := range items {
		unread := ""
		if n.Unread {
			unread = "yes"
		}
		ds.Rows = append(ds.Rows, table.Row{
			n.Repository.FullName,
			n.Subject.Type,
			n.Subject.Title,
			n.Reason,
			unread,
			formatDate(n.UpdatedAt),
		})
	}
	return ds
}

// Workflows renders Actions workflow definitions.
func Workflows(workflows []core.Workflow) Dataset {
	if workflows == nil {
		workflows = []core.Workflow{}
	}
	ds := Dataset{
		Header: table.Row{"ID", "Name", "State", "Path"},
		Data:   workflows,
	}
	for _, w := range workflows {
		ds.Rows = append(ds.Rows, table.Row{w.ID, w.Name, w.State, w.Path})
	}
	return ds
}

// WorkflowRuns renders workflow runs. The result column shows the
// conclusion once a run completed, else its status.
func WorkflowRuns(runs []core.WorkflowRun) Dataset {
	if runs == nil {
		runs = []core.WorkflowRun{}
	}
	ds := Dataset{
		Header: table.Row{"ID", "Workflow", "Branch", "Event", "Result", "Created"},
		Data:   runs,
	}
	for _, r := range runs {
		result := r.Status
		if r.Conclusion != "" {
			result = r.Conclusion
		}
		ds.Rows = append(ds.Rows, table.Row{r.ID, r.Name, r.HeadBranch, r.Event, result, formatDate(r.CreatedAt)})
	}
	return ds
}
