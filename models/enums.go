package models

type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleVeterinarian UserRole = "veterinarian"
	UserRoleReceptionist UserRole = "receptionist"
	UserRoleOwner        UserRole = "owner"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleVeterinarian, UserRoleReceptionist, UserRoleOwner:
		return true
	}
	return false
}

type AppointmentType string

const (
	AppointmentTypeCheckup     AppointmentType = "checkup"
	AppointmentTypeSurgery     AppointmentType = "surgery"
	AppointmentTypeVaccination AppointmentType = "vaccination"
	AppointmentTypeGrooming    AppointmentType = "grooming"
	AppointmentTypeEmergency   AppointmentType = "emergency"
	AppointmentTypeOther       AppointmentType = "other"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeCheckup, AppointmentTypeSurgery, AppointmentTypeVaccination,
		AppointmentTypeGrooming, AppointmentTypeEmergency, AppointmentTypeOther:
		return true
	}
	return false
}

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Blocking statuses count against the veterinarian's schedule.
// Cancelled and no-show appointments free their time range.
func (s AppointmentStatus) Blocking() bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusNoShow
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusPending       InvoiceStatus = "pending"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid,
		InvoiceStatusPartiallyPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

type InvoiceItemType string

const (
	InvoiceItemTypeProduct      InvoiceItemType = "product"
	InvoiceItemTypeService      InvoiceItemType = "service"
	InvoiceItemTypeConsultation InvoiceItemType = "consultation"
)

func (t InvoiceItemType) Valid() bool {
	switch t {
	case InvoiceItemTypeProduct, InvoiceItemTypeService, InvoiceItemTypeConsultation:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodDebitCard     PaymentMethod = "debit_card"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodMobilePayment PaymentMethod = "mobile_payment"
	PaymentMethodOther         PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodMobilePayment, PaymentMethodOther:
		return true
	}
	return false
}

type StockMovementType string

const (
	StockMovementTypeIn         StockMovementType = "in"
	StockMovementTypeOut        StockMovementType = "out"
	StockMovementTypeAdjustment StockMovementType = "adjustment"
	StockMovementTypeDamaged    StockMovementType = "damaged"
	StockMovementTypeExpired    StockMovementType = "expired"
)

func (t StockMovementType) Valid() bool {
	switch t {
	case StockMovementTypeIn, StockMovementTypeOut, StockMovementTypeAdjustment,
		StockMovementTypeDamaged, StockMovementTypeExpired:
		return true
	}
	return false
}

// ReferenceKind names the document a stock movement originated from.
type ReferenceKind string

const (
	ReferenceKindInvoice ReferenceKind = "invoice"
)

// referenceTables maps each kind to the table holding the referenced row.
// Adding a kind without a table entry is a programming error caught by
// ResolveReferenceTable.
var referenceTables = map[ReferenceKind]string{
	ReferenceKindInvoice: "invoices",
}

func ResolveReferenceTable(kind ReferenceKind) (string, bool) {
	table, ok := referenceTables[kind]
	return table, ok
}
