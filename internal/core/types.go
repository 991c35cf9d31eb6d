package core

import "time"

// User is a GitHub user or organization account.
type User struct {
	ID          int64      `json:"id"`
	Login       string     `json:"login"`
	Type        string     `json:"type,omitempty"`
	Name        string     `json:"name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	Company     string     `json:"company,omitempty"`
	Location    string     `json:"location,omitempty"`
	Blog        string     `json:"blog,omitempty"`
	PublicRepos *int       `json:"public_repos,omitempty"`
	PublicGists *int       `json:"public_gists,omitempty"`
	Followers   *int       `json:"followers,omitempty"`
	Following   *int       `json:"following,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	AvatarURL   string     `json:"avatar_url"`
	HTMLURL     string     `json:"html_url"`
}

// Repository is a GitHub repository.
type Repository struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     string     `json:"description,omitempty"`
	Private         bool       `json:"private"`
	Fork            bool       `json:"fork"`
	Archived        bool       `json:"archived,omitempty"`
	Language        string     `json:"language,omitempty"`
	StargazersCount int        `json:"stargazers_count"`
	WatchersCount   int        `json:"watchers_count"`
	ForksCount      int        `json:"forks_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	Size            int        `json:"size"`
	DefaultBranch   string     `json:"default_branch"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at,omitempty"`
	HTMLURL         string     `json:"html_url"`
	CloneURL        string     `json:"clone_url"`
	SSHURL          string     `json:"ssh_url"`
	Owner           User       `json:"owner"`
}

// Gist is a GitHub gist.
type Gist struct {
	ID          string         `json:"id"`
	Description string         `json:"description,omitempty"`
	Public      bool           `json:"public"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	HTMLURL     string         `json:"html_url"`
	Files       map[string]any `json:"files"`
	Owner       User           `json:"owner"`
}

// Label is an issue or pull request label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Issue is a GitHub issue. Pull requests listed through the issues endpoint
// carry a non-nil PullRequest marker.
type Issue struct {
	ID          int64          `json:"id"`
	Number      int            `json:"number"`
	Title       string         `json:"title"`
	Body        string         `json:"body,omitempty"`
	State       string         `json:"state"`
	User        User           `json:"user"`
	Assignee    *User          `json:"assignee,omitempty"`
	Assignees   []User         `json:"assignees,omitempty"`
	Labels      []Label        `json:"labels,omitempty"`
	Comments    int            `json:"comments"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	HTMLURL     string         `json:"html_url"`
	PullRequest map[string]any `json:"pull_request,omitempty"`
}

// Branch is the head or base reference of a pull request.
type Branch struct {
	Label string      `json:"label"`
	Ref   string      `json:"ref"`
	SHA   string      `json:"sha"`
	User  *User       `json:"user,omitempty"`
	Repo  *Repository `json:"repo,omitempty"`
}

// PullRequest is a GitHub pull request.
type PullRequest struct {
	ID           int64      `json:"id"`
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Body         string     `json:"body,omitempty"`
	State        string     `json:"state"`
	User         User       `json:"user"`
	Assignees    []User     `json:"assignees,omitempty"`
	Labels       []Label    `json:"labels,omitempty"`
	Head         Branch     `json:"head"`
	Base         Branch     `json:"base"`
	Draft        bool       `json:"draft"`
	Merged       bool       `json:"merged"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	Comments     int        `json:"comments"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	HTMLURL      string     `json:"html_url"`
}

// Organization is the summary form returned by organization listings.
type Organization struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	AvatarURL   string `json:"avatar_url"`
}

// Team is a GitHub organization team.
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
	Permission  string `json:"permission,omitempty"`
	HTMLURL     string `json:"html_url"`
}

// Subscription describes the authenticated user's watch state for a repository.
type Subscription struct {
	Subscribed bool `json:"subscribed"`
	Ignored    bool `json:"ignored"`
}

// NotificationSubject is the thread a notification refers to.
type NotificationSubject struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
}

// Notification is one thread in the authenticated user's inbox.
type Notification struct {
	ID         string              `json:"id"`
	Unread     bool                `json:"unread"`
	Reason     string              `json:"reason"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Subject    NotificationSubject `json:"subject"`
	Repository Repository          `json:"repository"`
}

// Workflow is a GitHub Actions workflow definition.
type Workflow struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// WorkflowRun is one execution of a workflow.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	WorkflowID int64     `json:"workflow_id"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion,omitempty"`
	HeadBranch string    `json:"head_branch"`
	Event      string    `json:"event"`
	CreatedAt  time.Time `json:"created_at"`
	HTMLURL    string    `json:"html_url"`
}

// MergeResult is the response to a pull request merge.
type MergeResult struct {
	SHA     string `json:"sha"`
	Merged  bool   `json:"merged"`
	Message string `json:"message"`
}
