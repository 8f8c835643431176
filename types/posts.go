package types

// Question is a question post.
type Question struct {
	QuestionID         int            `json:"question_id"`
	Title              string         `json:"title"`
	Link               string         `json:"link"`
	Tags               []string       `json:"tags"`
	Owner              *ShallowUser   `json:"owner,omitempty"`
	IsAnswered         bool           `json:"is_answered"`
	ViewCount          int            `json:"view_count"`
	AnswerCount        int            `json:"answer_count"`
	Score              int            `json:"score"`
	AcceptedAnswerID   *int           `json:"accepted_answer_id,omitempty"`
	BountyAmount       *int           `json:"bounty_amount,omitempty"`
	BountyClosesDate   *UnixTime      `json:"bounty_closes_date,omitempty"`
	ClosedDate         *UnixTime      `json:"closed_date,omitempty"`
	ClosedReason       string         `json:"closed_reason,omitempty"`
	CommunityOwnedDate *UnixTime      `json:"community_owned_date,omitempty"`
	CreationDate       UnixTime       `json:"creation_date"`
	LastActivityDate   UnixTime       `json:"last_activity_date"`
	LastEditDate       *UnixTime      `json:"last_edit_date,omitempty"`
	LockedDate         *UnixTime      `json:"locked_date,omitempty"`
	ProtectedDate      *UnixTime      `json:"protected_date,omitempty"`
	MigratedFrom       *MigrationInfo `json:"migrated_from,omitempty"`
	MigratedTo         *MigrationInfo `json:"migrated_to,omitempty"`
	Body               string         `json:"body,omitempty"`
	ContentLicense     string         `json:"content_license,omitempty"`
}

// Answer is an answer post.
type Answer struct {
	AnswerID           int          `json:"answer_id"`
	QuestionID         int          `json:"question_id"`
	Owner              *ShallowUser `json:"owner,omitempty"`
	IsAccepted         bool         `json:"is_accepted"`
	Score              int          `json:"score"`
	CreationDate       UnixTime     `json:"creation_date"`
	LastActivityDate   UnixTime     `json:"last_activity_date"`
	LastEditDate       *UnixTime    `json:"last_edit_date,omitempty"`
	CommunityOwnedDate *UnixTime    `json:"community_owned_date,omitempty"`
	LockedDate         *UnixTime    `json:"locked_date,omitempty"`
	Body               string       `json:"body,omitempty"`
	ContentLicense     string       `json:"content_license,omitempty"`
}

// MigrationInfo describes where a question moved to or came from.
type MigrationInfo struct {
	OnDate     UnixTime `json:"on_date"`
	OtherSite  *Site    `json:"other_site,omitempty"`
	QuestionID int      `json:"question_id"`
}
