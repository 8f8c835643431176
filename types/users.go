package types

// UserType is the account state of a user.
type UserType string

const (
	UserTypeUnregistered UserType = "unregistered"
	UserTypeRegistered   UserType = "registered"
	UserTypeModerator    UserType = "moderator"
	UserTypeTeamAdmin    UserType = "team_admin"
	UserTypeDoesNotExist UserType = "does_not_exist"
)

// BadgeCount tallies a user's badges by rank.
type BadgeCount struct {
	Gold   int `json:"gold"`
	Silver int `json:"silver"`
	Bronze int `json:"bronze"`
}

// ShallowUser is the user summary embedded in posts.
type ShallowUser struct {
	UserID       *int        `json:"user_id,omitempty"`
	DisplayName  string      `json:"display_name,omitempty"`
	Reputation   *int        `json:"reputation,omitempty"`
	UserType     UserType    `json:"user_type,omitempty"`
	ProfileImage string      `json:"profile_image,omitempty"`
	Link         string      `json:"link,omitempty"`
	AcceptRate   *int        `json:"accept_rate,omitempty"`
	BadgeCounts  *BadgeCount `json:"badge_counts,omitempty"`
}

// User is a full user profile on one site.
type User struct {
	UserID                  int        `json:"user_id"`
	AccountID               *int       `json:"account_id,omitempty"`
	DisplayName             string     `json:"display_name"`
	UserType                UserType   `json:"user_type"`
	Reputation              int        `json:"reputation"`
	ReputationChangeDay     int        `json:"reputation_change_day"`
	ReputationChangeWeek    int        `json:"reputation_change_week"`
	ReputationChangeMonth   int        `json:"reputation_change_month"`
	ReputationChangeQuarter int        `json:"reputation_change_quarter"`
	ReputationChangeYear    int        `json:"reputation_change_year"`
	CreationDate            UnixTime   `json:"creation_date"`
	LastAccessDate          UnixTime   `json:"last_access_date"`
	LastModifiedDate        *UnixTime  `json:"last_modified_date,omitempty"`
	IsEmployee              bool       `json:"is_employee"`
	Location                string     `json:"location,omitempty"`
	WebsiteURL              string     `json:"website_url,omitempty"`
	Link                    string     `json:"link"`
	ProfileImage            string     `json:"profile_image,omitempty"`
	AcceptRate              *int       `json:"accept_rate,omitempty"`
	BadgeCounts             BadgeCount `json:"badge_counts"`
	QuestionCount           *int       `json:"question_count,omitempty"`
	AnswerCount             *int       `json:"answer_count,omitempty"`
	ViewCount               *int       `json:"view_count,omitempty"`
	UpVoteCount             *int       `json:"up_vote_count,omitempty"`
	DownVoteCount           *int       `json:"down_vote_count,omitempty"`
	AboutMe                 string     `json:"about_me,omitempty"`
}
