package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	BranchID     uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	BiometricID  pgtype.Text
	Active       bool
	CreatedAt    time.Time
}

type Customer struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	Name      string
	Phone     string
	Email     pgtype.Text
	Segment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID                uuid.UUID
	OrderNo           string
	BranchID          uuid.UUID
	CustomerID        uuid.UUID
	Status            string
	ServiceType       string
	CollectionMethod  string
	CollectionAddress pgtype.Text
	ReturnMethod      string
	ReturnAddress     pgtype.Text
	TotalAmount       pgtype.Numeric
	PaidAmount        pgtype.Numeric
	PaymentStatus     string
	EstimatedReadyAt  pgtype.Timestamptz
	CompletedAt       pgtype.Timestamptz
	FeedbackEligible  bool
	ParentRedoItemID  pgtype.UUID
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Garment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	GarmentNo int32
	Type      string
	Color     pgtype.Text
	Brand     pgtype.Text
	Services  []string
	Price     pgtype.Numeric
}

// StageCompletion records one staff member finishing one stage for one
// garment. UNIQUE(garment_id, stage) makes duplicate completion impossible.
type StageCompletion struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	GarmentID   uuid.UUID
	Stage       string
	StaffID     uuid.UUID
	StaffName   string
	StartedAt   pgtype.Timestamptz
	CompletedAt time.Time
}

type StatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    string
	ActorID   uuid.UUID
	ActorName string
	CreatedAt time.Time
}

type Batch struct {
	ID            uuid.UUID
	BranchID      uuid.UUID
	Stage         string
	Status        string
	GarmentCount  int32
	AssignedStaff []uuid.UUID
	StartedAt     time.Time
	CompletedAt   pgtype.Timestamptz
	CreatedBy     uuid.UUID
}

type PricingRule struct {
	ID              uuid.UUID
	RuleNo          string
	ServiceType     string
	BranchCode      string
	Segment         string
	PricingType     string
	BasePrice       pgtype.Numeric
	PricePerKg      pgtype.Numeric
	MinWeightKg     pgtype.Numeric
	MaxWeightKg     pgtype.Numeric
	DiscountPercent pgtype.Numeric
	Priority        int32
	Active          bool
	CreatedAt       time.Time
}

type LoyaltyTier struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
}

type LoyaltyProgram struct {
	ID                uuid.UUID
	Name              string
	Tiers             []LoyaltyTier
	MinPointsToRedeem int64
	PointsToKESRatio  int64
	ExpiryMonths      int32
	Active            bool
}

type LoyaltyAccount struct {
	ID            uuid.UUID
	AccountNo     string
	ProgramID     uuid.UUID
	CustomerID    uuid.UUID
	Balance       int64
	TotalEarned   int64
	TotalRedeemed int64
	Tier          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LoyaltyTransaction struct {
	ID           uuid.UUID
	TxNo         string
	AccountID    uuid.UUID
	Type         string
	Points       int64
	BalanceAfter int64
	ExpiresAt    pgtype.Timestamptz
	CreatedAt    time.Time
}

type LoyaltyTierChange struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Tier      string
	CreatedAt time.Time
}

type QuotationItem struct {
	Description string `json:"description"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type Quotation struct {
	ID               uuid.UUID
	QuotationNo      string
	BranchID         uuid.UUID
	CustomerID       uuid.UUID
	Status           string
	Items            []QuotationItem
	TotalAmount      pgtype.Numeric
	ValidUntil       pgtype.Timestamptz
	ConvertedOrderID pgtype.UUID
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type RedoItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	GarmentID   uuid.UUID
	Reason      string
	Status      string
	RedoOrderID pgtype.UUID
	RequestedBy uuid.UUID
	ApprovedBy  pgtype.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Device struct {
	ID       uuid.UUID
	Serial   string
	Name     string
	BranchID uuid.UUID
	IP       pgtype.Text
	Secret   pgtype.Text
	Active   bool
}

type AttendanceEvent struct {
	ID          uuid.UUID
	DeviceID    uuid.UUID
	UserID      uuid.UUID
	BiometricID string
	EventType   string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

type Feedback struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Rating     int32
	Source     string
	CreatedAt  time.Time
}
