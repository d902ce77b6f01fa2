package models

import (
	"strings"
)

// Sentinel labels used when a categorical field is absent.
const (
	Unknown       = "Unknown"
	UnknownEntity = "Unknown Entity"
	NoMembership  = "No Membership"
	NoTrainer     = "No Trainer"
	Unassigned    = "Unassigned"
	OnlineSystem  = "Online/System"
)

// Status values the reports count on.
const (
	StatusConverted     = "Converted"
	StatusRetained      = "Retained"
	StageTrialCompleted = "Trial Completed"
	StageProximity      = "Proximity Issues"
)

type Client struct {
	MemberID             string `json:"memberId"`
	TrainerName          string `json:"trainerName"`
	MembershipUsed       string `json:"membershipUsed"`
	FirstVisitLocation   string `json:"firstVisitLocation"`
	HomeLocation         string `json:"homeLocation"`
	FirstVisitEntityName string `json:"firstVisitEntityName"`
	ConversionStatus     string `json:"conversionStatus"`
	RetentionStatus      string `json:"retentionStatus"`
	LTV                  Number `json:"ltv"`
	ConversionSpan       Number `json:"conversionSpan"` // days
	VisitsPostTrial      Number `json:"visitsPostTrial"`
	ClassNo              Number `json:"classNo"`
	FirstVisitDate       string `json:"firstVisitDate"`
}

type Lead struct {
	ID               string `json:"id"`
	Source           string `json:"source"`
	Stage            string `json:"stage"`
	Status           string `json:"status"`
	Associate        string `json:"associate"`
	Channel          string `json:"channel"`
	Center           string `json:"center"`
	ConversionStatus string `json:"conversionStatus"`
	LTV              Number `json:"ltv"`
	Visits           Number `json:"visits"`
	CreatedAt        string `json:"createdAt"`
}

type Session struct {
	SessionID     string `json:"sessionId"`
	SessionName   string `json:"sessionName"`
	Trainer       string `json:"trainer"`
	Location      string `json:"location"`
	Class         string `json:"class"`
	CleanedClass  string `json:"cleanedClass"`
	ClassType     string `json:"classType"`
	Type          string `json:"type"`
	Day           string `json:"day"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Capacity      Number `json:"capacity"`
	CheckedIn     Number `json:"checkedIn"`
	Booked        Number `json:"booked"`
	LateCancelled Number `json:"lateCancelled"`
	EmptySessions Number `json:"emptySessions"`
	Revenue       Number `json:"revenue"`
	NonPaid       Number `json:"nonPaid"`
	Complimentary Number `json:"complimentary"`
}

type Sale struct {
	SaleID             string `json:"saleItemId"`
	CleanedCategory    string `json:"cleanedCategory"`
	CleanedProduct     string `json:"cleanedProduct"`
	SoldBy             string `json:"soldBy"`
	PaymentMethod      string `json:"paymentMethod"`
	DiscountAmount     Number `json:"discountAmount"`
	DiscountPercentage Number `json:"discountPercentage"`
	PaymentValue       Number `json:"paymentValue"`
	PaymentDate        string `json:"paymentDate"`
	CalculatedLocation string `json:"calculatedLocation"`
}

// Coalesce returns the trimmed value, or def when it is blank.
func Coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// ClassName prefers the cleaned class name over the raw one.
func (s Session) ClassName() string {
	return Coalesce(Coalesce(s.CleanedClass, s.Class), Unknown)
}

// Seller maps the "-" placeholder used for online checkouts.
func (s Sale) Seller() string {
	if strings.TrimSpace(s.SoldBy) == "-" {
		return OnlineSystem
	}
	return Coalesce(s.SoldBy, Unassigned)
}

// Location is the first-visit studio, falling back to the home studio.
func (c Client) Location() string {
	return Coalesce(Coalesce(c.FirstVisitLocation, c.HomeLocation), Unknown)
}

// Key is the row id used to drop repeated rows. Empty keys are never
// de-duplicated. Clients have no row id: a member may span several rows.
func (l Lead) Key() string    { return l.ID }
func (s Session) Key() string { return s.SessionID }
func (s Sale) Key() string    { return s.SaleID }
