package types

// SiteType distinguishes main sites from their meta sites.
type SiteType string

const (
	SiteTypeMain SiteType = "main_site"
	SiteTypeMeta SiteType = "meta_site"
)

// SiteState is the lifecycle stage of a site.
type SiteState string

const (
	SiteStateNormal     SiteState = "normal"
	SiteStateClosedBeta SiteState = "closed_beta"
	SiteStateOpenBeta   SiteState = "open_beta"
	SiteStateLinkedMeta SiteState = "linked_meta"
)

// Site is one Stack Exchange community.
type Site struct {
	Name               string        `json:"name"`
	APISiteParameter   string        `json:"api_site_parameter"`
	SiteURL            string        `json:"site_url"`
	Audience           string        `json:"audience,omitempty"`
	SiteType           SiteType      `json:"site_type"`
	SiteState          SiteState     `json:"site_state"`
	LaunchDate         UnixTime      `json:"launch_date"`
	OpenBetaDate       *UnixTime     `json:"open_beta_date,omitempty"`
	ClosedBetaDate     *UnixTime     `json:"closed_beta_date,omitempty"`
	Aliases            []string      `json:"aliases,omitempty"`
	MarkdownExtensions []string      `json:"markdown_extensions,omitempty"`
	IconURL            string        `json:"icon_url,omitempty"`
	LogoURL            string        `json:"logo_url,omitempty"`
	FaviconURL         string        `json:"favicon_url,omitempty"`
	HighResIconURL     string        `json:"high_resolution_icon_url,omitempty"`
	TwitterAccount     string        `json:"twitter_account,omitempty"`
	RelatedSites       []RelatedSite `json:"related_sites,omitempty"`
	Styling            *Styling      `json:"styling,omitempty"`
}

// RelatedSite links a site to its meta or chat counterpart.
type RelatedSite struct {
	Name             string `json:"name"`
	SiteURL          string `json:"site_url"`
	Relation         string `json:"relation"`
	APISiteParameter string `json:"api_site_parameter,omitempty"`
}

// Styling holds a site's theme colors.
type Styling struct {
	LinkColor     string `json:"link_color"`
	TagForeground string `json:"tag_foreground_color"`
	TagBackground string `json:"tag_background_color"`
}

// Info is the per-site statistics returned by /info.
type Info struct {
	TotalQuestions     int     `json:"total_questions"`
	TotalUnanswered    int     `json:"total_unanswered"`
	TotalAccepted      int     `json:"total_accepted"`
	TotalAnswers       int     `json:"total_answers"`
	TotalComments      int     `json:"total_comments"`
	TotalVotes         int     `json:"total_votes"`
	TotalBadges        int     `json:"total_badges"`
	TotalUsers         int     `json:"total_users"`
	BadgesPerMinute    float64 `json:"badges_per_minute"`
	AnswersPerMinute   float64 `json:"answers_per_minute"`
	QuestionsPerMinute float64 `json:"questions_per_minute"`
	NewActiveUsers     int     `json:"new_active_users"`
	APIRevision        string  `json:"api_revision"`
	Site               *Site   `json:"site,omitempty"`
}
