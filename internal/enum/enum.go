package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusReceived          = "RECEIVED"
	OrderStatusQueued            = "QUEUED"
	OrderStatusWashing           = "WASHING"
	OrderStatusDrying            = "DRYING"
	OrderStatusIroning           = "IRONING"
	OrderStatusQualityCheck      = "QUALITY_CHECK"
	OrderStatusPackaging         = "PACKAGING"
	OrderStatusQueuedForDelivery = "QUEUED_FOR_DELIVERY"
	OrderStatusOutForDelivery    = "OUT_FOR_DELIVERY"
	OrderStatusDelivered         = "DELIVERED"
	OrderStatusCollected         = "COLLECTED"
	OrderStatusRedo              = "REDO"
	OrderStatusCancelled         = "CANCELLED"
)

// Processing stages recorded per garment. Washing and drying are batch
// stages: an order can also advance past them when its containing batch
// completes, without individual garment records.
const (
	StageWashing      = "WASHING"
	StageDrying       = "DRYING"
	StageIroning      = "IRONING"
	StageQualityCheck = "QUALITY_CHECK"
	StagePackaging    = "PACKAGING"
)

const (
	BatchStatusInProgress = "IN_PROGRESS"
	BatchStatusComplete   = "COMPLETE"
)

const (
	QuotationStatusDraft     = "DRAFT"
	QuotationStatusSent      = "SENT"
	QuotationStatusAccepted  = "ACCEPTED"
	QuotationStatusRejected  = "REJECTED"
	QuotationStatusExpired   = "EXPIRED"
	QuotationStatusConverted = "CONVERTED"
)

const (
	RedoStatusPending    = "PENDING"
	RedoStatusApproved   = "APPROVED"
	RedoStatusRejected   = "REJECTED"
	RedoStatusInProgress = "IN_PROGRESS"
	RedoStatusCompleted  = "COMPLETED"
)

const (
	PaymentStatusUnpaid  = "UNPAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"
)

// ── Roles and capabilities ──

const (
	UserRoleDirector       = "DIRECTOR"
	UserRoleGeneralManager = "GENERAL_MANAGER"
	UserRoleFrontDesk      = "FRONT_DESK"
	UserRoleWorkstation    = "WORKSTATION"
)

// Capability is a named permission checked by middleware. Routes declare
// the capability they need instead of repeating role allow-lists.
type Capability string

const (
	CapManageOrders    Capability = "manage_orders"
	CapProcessStages   Capability = "process_stages"
	CapManageBatches   Capability = "manage_batches"
	CapManagePricing   Capability = "manage_pricing"
	CapManageLoyalty   Capability = "manage_loyalty"
	CapManageCustomers Capability = "manage_customers"
	CapApproveRedo     Capability = "approve_redo"
	CapViewReports     Capability = "view_reports"
	CapViewAllBranches Capability = "view_all_branches"
)

// RoleCapabilities maps each role to the capabilities it holds.
var RoleCapabilities = map[string][]Capability{
	UserRoleDirector: {
		CapManageOrders, CapProcessStages, CapManageBatches, CapManagePricing,
		CapManageLoyalty, CapManageCustomers, CapApproveRedo, CapViewReports,
		CapViewAllBranches,
	},
	UserRoleGeneralManager: {
		CapManageOrders, CapProcessStages, CapManageBatches, CapManagePricing,
		CapManageLoyalty, CapManageCustomers, CapApproveRedo, CapViewReports,
	},
	UserRoleFrontDesk: {
		CapManageOrders, CapManageLoyalty, CapManageCustomers,
	},
	UserRoleWorkstation: {
		CapProcessStages, CapManageBatches,
	},
}

// RoleHasCapability reports whether the role holds the capability.
func RoleHasCapability(role string, c Capability) bool {
	for _, have := range RoleCapabilities[role] {
		if have == c {
			return true
		}
	}
	return false
}

// ── Configurable labels (no DB constraint) ──

const (
	ServiceTypeNormal  = "NORMAL"
	ServiceTypeExpress = "EXPRESS"
)

const (
	CollectionMethodDropOff = "DROP_OFF"
	CollectionMethodPickup  = "PICKUP"
)

const (
	ReturnMethodCollect  = "COLLECT"
	ReturnMethodDelivery = "DELIVERY"
)

const (
	PricingTypePerItem = "PER_ITEM"
	PricingTypePerKg   = "PER_KG"
	PricingTypeHybrid  = "HYBRID"
)

const (
	CustomerSegmentRegular   = "REGULAR"
	CustomerSegmentVIP       = "VIP"
	CustomerSegmentCorporate = "CORPORATE"
)

const (
	LoyaltyTxEarned   = "EARNED"
	LoyaltyTxRedeemed = "REDEEMED"
)

const (
	AttendanceCheckIn  = "CHECK_IN"
	AttendanceCheckOut = "CHECK_OUT"
)
