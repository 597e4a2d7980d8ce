package model

import "time"

// LeadStatus tracks how far a lead has advanced through the pipeline.
type LeadStatus string

const (
	LeadStatusCollected    LeadStatus = "collected"
	LeadStatusValidated    LeadStatus = "validated"
	LeadStatusEnriched     LeadStatus = "enriched"
	LeadStatusResearched   LeadStatus = "researched"
	LeadStatusPersonalized LeadStatus = "personalized"
	LeadStatusSubmitted    LeadStatus = "submitted"
	LeadStatusFailed       LeadStatus = "failed"
)

// leadStatusRank orders the forward-only lead lifecycle. Failed is terminal
// and reachable from any rank.
var leadStatusRank = map[LeadStatus]int{
	LeadStatusCollected:    0,
	LeadStatusValidated:    1,
	LeadStatusEnriched:     2,
	LeadStatusResearched:   3,
	LeadStatusPersonalized: 4,
	LeadStatusSubmitted:    5,
}

// Advances reports whether moving from the current status to next is a legal
// transition: forward along the lifecycle, or to failed from anywhere.
func (s LeadStatus) Advances(next LeadStatus) bool {
	if next == LeadStatusFailed {
		return s != LeadStatusFailed
	}
	cur, ok := leadStatusRank[s]
	if !ok {
		return false
	}
	nxt, ok := leadStatusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// TriState is a three-valued validation flag.
type TriState string

const (
	TriUnknown TriState = "unknown"
	TriValid   TriState = "valid"
	TriInvalid TriState = "invalid"
)

// FromBool converts a validation verdict into a TriState.
func FromBool(ok bool) TriState {
	if ok {
		return TriValid
	}
	return TriInvalid
}

// Bool reports the flag as a boolean; unknown counts as false.
func (t TriState) Bool() bool { return t == TriValid }

// LinkedInProfile is the inferred company profile payload.
type LinkedInProfile struct {
	Inferred    bool    `json:"inferred"`
	CompanyName string  `json:"company_name"`
	Industry    string  `json:"industry"`
	Location    string  `json:"location"`
	ProfileURL  string  `json:"profile_url,omitempty"`
	Confidence  float64 `json:"confidence_score"`
}

// ResearchData is the AI research payload attached to a lead.
type ResearchData struct {
	Overview         string    `json:"company_overview"`
	IndustryInsights string    `json:"industry_insights"`
	KeyChallenges    []string  `json:"key_challenges,omitempty"`
	RecentNews       []string  `json:"recent_news,omitempty"`
	Confidence       float64   `json:"confidence_score"`
	ResearchedAt     time.Time `json:"researched_at"`
}

// PersonalizedMessage is the outreach message payload attached to a lead.
type PersonalizedMessage struct {
	Subject      string    `json:"subject"`
	Body         string    `json:"message"`
	TemplateUsed string    `json:"template_used"`
	CreatedAt    time.Time `json:"created_at"`
}

// Lead is one candidate business record tracked through the pipeline.
type Lead struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	PlaceID    string `json:"place_id"`

	Name         string  `json:"name"`
	Address      string  `json:"address,omitempty"`
	City         string  `json:"city,omitempty"`
	State        string  `json:"state,omitempty"`
	PostalCode   string  `json:"postal_code,omitempty"`
	Country      string  `json:"country,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Email        string  `json:"email,omitempty"`
	Website      string  `json:"website,omitempty"`
	Category     string  `json:"category,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	ReviewsCount int     `json:"reviews_count,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`

	Status LeadStatus `json:"status"`

	EmailValid   TriState `json:"email_valid"`
	PhoneValid   TriState `json:"phone_valid"`
	CompanyValid TriState `json:"company_valid"`

	LinkedInEnriched    bool `json:"linkedin_enriched"`
	ResearchCompleted   bool `json:"research_completed"`
	MessagePersonalized bool `json:"message_personalized"`

	LinkedInProfile     *LinkedInProfile     `json:"linkedin_profile,omitempty"`
	ResearchData        *ResearchData        `json:"research_data,omitempty"`
	PersonalizedMessage *PersonalizedMessage `json:"personalized_message,omitempty"`

	StageError string    `json:"stage_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LeadUpdate holds a partial lead mutation. Nil fields are left untouched.
// Enrichment flags only ever transition false to true, so they are plain
// bools here; the store ignores false values for them.
type LeadUpdate struct {
	Status              *LeadStatus
	EmailValid          *TriState
	PhoneValid          *TriState
	CompanyValid        *TriState
	LinkedInEnriched    bool
	ResearchCompleted   bool
	MessagePersonalized bool
	LinkedInProfile     *LinkedInProfile
	ResearchData        *ResearchData
	PersonalizedMessage *PersonalizedMessage
	StageError          *string
}
