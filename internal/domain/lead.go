package domain

import "time"

// ============================================================
// Leads
// ============================================================

// Goal is the investment goal a prospect selects in the qualification step.
type Goal string

const (
	GoalRentalIncome  Goal = "RENTAL_INCOME"
	GoalCapitalGrowth Goal = "CAPITAL_GROWTH"
	GoalPersonalUse   Goal = "PERSONAL_USE"
	GoalMixed         Goal = "MIXED"
)

// Valid reports whether g is a known goal.
func (g Goal) Valid() bool {
	switch g {
	case GoalRentalIncome, GoalCapitalGrowth, GoalPersonalUse, GoalMixed:
		return true
	}
	return false
}

// Horizon is the planned holding horizon bracket.
type Horizon string

const (
	Horizon1To3  Horizon = "1-3"
	Horizon3To5  Horizon = "3-5"
	Horizon5To10 Horizon = "5-10"
	Horizon10Up  Horizon = "10+"
)

// Valid reports whether h is a known horizon bracket.
func (h Horizon) Valid() bool {
	switch h {
	case Horizon1To3, Horizon3To5, Horizon5To10, Horizon10Up:
		return true
	}
	return false
}

// Budget brackets offered by the contact form.
var BudgetBrackets = []string{"100-150k", "150-250k", "250-500k", "500k+"}

// DefaultLeadSource tags submissions coming from the landing page form.
const DefaultLeadSource = "landing_page"

// LeadDraft is the unvalidated contact form payload.
type LeadDraft struct {
	Name              string   `json:"name"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email,omitempty"`
	Budget            string   `json:"budget,omitempty"`
	Goal              Goal     `json:"goal,omitempty"`
	Horizon           Horizon  `json:"horizon,omitempty"`
	PreferredCategory Category `json:"preferredCategory,omitempty"`
	DsgvoConsent      bool     `json:"dsgvoConsent"`
	MarketingConsent  bool     `json:"marketingConsent"`
	Source            string   `json:"source,omitempty"`
}

// Lead is a persisted contact submission. It is never mutated after creation.
type Lead struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email,omitempty"`
	Budget            string    `json:"budget,omitempty"`
	Goal              Goal      `json:"goal,omitempty"`
	Horizon           Horizon   `json:"horizon,omitempty"`
	PreferredCategory Category  `json:"preferredCategory,omitempty"`
	DsgvoConsent      bool      `json:"dsgvoConsent"`
	MarketingConsent  bool      `json:"marketingConsent"`
	Source            string    `json:"source"`
	CreatedAt         time.Time `json:"createdAt"`
}

// FieldErrors maps a form field name to its validation message.
type FieldErrors map[string]string

// OK reports whether no field failed validation.
func (f FieldErrors) OK() bool { return len(f) == 0 }

// LeadSubmittedEvent is published after a lead has been persisted.
type LeadSubmittedEvent struct {
	LeadID            string   `json:"lead_id"`
	Name              string   `json:"name"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email,omitempty"`
	Budget            string   `json:"budget,omitempty"`
	PreferredCategory Category `json:"preferred_category,omitempty"`
	MarketingConsent  bool     `json:"marketing_consent"`
	Source            string   `json:"source"`
	CreatedAt         string   `json:"created_at"`
}
