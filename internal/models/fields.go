package models

// Field names a record attribute that filters, groupings and option lists can
// address. Each record type resolves fields through an explicit accessor
// table; a field a record does not carry reads as "" or 0. Fields that reports
// group by read blank values as the same sentinel label the group rows show,
// so a filter can select exactly one group.
type Field string

const (
	FieldLocation         Field = "location"
	FieldTrainer          Field = "trainer"
	FieldClass            Field = "class"
	FieldClassType        Field = "classType"
	FieldDay              Field = "day"
	FieldTime             Field = "time"
	FieldCategory         Field = "category"
	FieldProduct          Field = "product"
	FieldSoldBy           Field = "soldBy"
	FieldPaymentMethod    Field = "paymentMethod"
	FieldSource           Field = "source"
	FieldStage            Field = "stage"
	FieldStatus           Field = "status"
	FieldAssociate        Field = "associate"
	FieldChannel          Field = "channel"
	FieldCenter           Field = "center"
	FieldConversionStatus Field = "conversionStatus"
	FieldRetentionStatus  Field = "retentionStatus"
	FieldMembership       Field = "membership"
	FieldEntity           Field = "entity"

	FieldLTV             Field = "ltv"
	FieldCapacity        Field = "capacity"
	FieldCheckedIn       Field = "checkedIn"
	FieldFillRate        Field = "fillRate"
	FieldRevenue         Field = "revenue"
	FieldLateCancelled   Field = "lateCancelled"
	FieldDiscountAmount  Field = "discountAmount"
	FieldDiscountPercent Field = "discountPercent"
	FieldVisits          Field = "visits"
)

var clientText = map[Field]func(Client) string{
	FieldLocation:         Client.Location,
	FieldTrainer:          func(c Client) string { return Coalesce(c.TrainerName, NoTrainer) },
	FieldMembership:       func(c Client) string { return Coalesce(c.MembershipUsed, NoMembership) },
	FieldEntity:           func(c Client) string { return Coalesce(c.FirstVisitEntityName, UnknownEntity) },
	FieldConversionStatus: func(c Client) string { return c.ConversionStatus },
	FieldRetentionStatus:  func(c Client) string { return c.RetentionStatus },
}

var clientValue = map[Field]func(Client) float64{
	FieldLTV:    func(c Client) float64 { return c.LTV.Float() },
	FieldVisits: func(c Client) float64 { return c.VisitsPostTrial.Float() },
}

var leadText = map[Field]func(Lead) string{
	FieldSource:           func(l Lead) string { return Coalesce(l.Source, Unknown) },
	FieldStage:            func(l Lead) string { return Coalesce(l.Stage, Unknown) },
	FieldStatus:           func(l Lead) string { return l.Status },
	FieldAssociate:        func(l Lead) string { return Coalesce(l.Associate, Unassigned) },
	FieldChannel:          func(l Lead) string { return Coalesce(l.Channel, Unknown) },
	FieldCenter:           func(l Lead) string { return Coalesce(l.Center, Unknown) },
	FieldLocation:         func(l Lead) string { return Coalesce(l.Center, Unknown) },
	FieldConversionStatus: func(l Lead) string { return l.ConversionStatus },
}

var leadValue = map[Field]func(Lead) float64{
	FieldLTV:    func(l Lead) float64 { return l.LTV.Float() },
	FieldVisits: func(l Lead) float64 { return l.Visits.Float() },
}

var sessionText = map[Field]func(Session) string{
	FieldLocation:  func(s Session) string { return s.Location },
	FieldTrainer:   func(s Session) string { return Coalesce(s.Trainer, Unknown) },
	FieldClass:     Session.ClassName,
	FieldClassType: func(s Session) string { return Coalesce(s.Type, s.ClassType) },
	FieldDay:       func(s Session) string { return s.Day },
	FieldTime:      func(s Session) string { return s.Time },
}

var sessionValue = map[Field]func(Session) float64{
	FieldCapacity:      func(s Session) float64 { return s.Capacity.Float() },
	FieldCheckedIn:     func(s Session) float64 { return s.CheckedIn.Float() },
	FieldRevenue:       func(s Session) float64 { return s.Revenue.Float() },
	FieldLateCancelled: func(s Session) float64 { return s.LateCancelled.Float() },
	FieldFillRate:      Session.FillRate,
}

var saleText = map[Field]func(Sale) string{
	FieldLocation:      func(s Sale) string { return s.CalculatedLocation },
	FieldCategory:      func(s Sale) string { return Coalesce(s.CleanedCategory, Unknown) },
	FieldProduct:       func(s Sale) string { return Coalesce(s.CleanedProduct, Unknown) },
	FieldSoldBy:        Sale.Seller,
	FieldPaymentMethod: func(s Sale) string { return Coalesce(s.PaymentMethod, Unknown) },
}

var saleValue = map[Field]func(Sale) float64{
	FieldRevenue:         func(s Sale) float64 { return s.PaymentValue.Float() },
	FieldDiscountAmount:  func(s Sale) float64 { return s.DiscountAmount.Float() },
	FieldDiscountPercent: func(s Sale) float64 { return s.DiscountPercentage.Float() },
}

// FillRate is checked-in attendees over capacity, as a percentage.
func (s Session) FillRate() float64 {
	if s.Capacity <= 0 {
		return 0
	}
	return float64(s.CheckedIn) / float64(s.Capacity) * 100
}

func (c Client) RecordDate() string { return c.FirstVisitDate }
func (c Client) Text(f Field) string {
	if fn, ok := clientText[f]; ok {
		return fn(c)
	}
	return ""
}
func (c Client) Value(f Field) float64 {
	if fn, ok := clientValue[f]; ok {
		return fn(c)
	}
	return 0
}
func (c Client) Searchable() []string {
	return []string{c.TrainerName, c.MembershipUsed, c.FirstVisitLocation, c.FirstVisitEntityName}
}

func (l Lead) RecordDate() string { return l.CreatedAt }
func (l Lead) Text(f Field) string {
	if fn, ok := leadText[f]; ok {
		return fn(l)
	}
	return ""
}
func (l Lead) Value(f Field) float64 {
	if fn, ok := leadValue[f]; ok {
		return fn(l)
	}
	return 0
}
func (l Lead) Searchable() []string {
	return []string{l.Source, l.Stage, l.Associate, l.Channel, l.Center}
}

func (s Session) RecordDate() string { return s.Date }
func (s Session) Text(f Field) string {
	if fn, ok := sessionText[f]; ok {
		return fn(s)
	}
	return ""
}
func (s Session) Value(f Field) float64 {
	if fn, ok := sessionValue[f]; ok {
		return fn(s)
	}
	return 0
}
func (s Session) Searchable() []string {
	return []string{s.Trainer, s.SessionName, s.Location, s.Type, s.Class}
}

func (s Sale) RecordDate() string { return s.PaymentDate }
func (s Sale) Text(f Field) string {
	if fn, ok := saleText[f]; ok {
		return fn(s)
	}
	return ""
}
func (s Sale) Value(f Field) float64 {
	if fn, ok := saleValue[f]; ok {
		return fn(s)
	}
	return 0
}
func (s Sale) Searchable() []string {
	return []string{s.CleanedCategory, s.CleanedProduct, s.SoldBy, s.PaymentMethod, s.CalculatedLocation}
}
