package enum

// ── Group A: Roles (sent in rol-usuario / X-User-Role headers) ──

const (
	RoleAccountManager = "gerente_cuenta"
	RoleInstitutional  = "usuario_institucional"
	RoleAdmin          = "admin"
)

// ── Group B: State machines (server owned) ──

const (
	OrderStatusPending   = "pendiente"
	OrderStatusShipped   = "enviado"
	OrderStatusDelivered = "entregado"
	OrderStatusCancelled = "cancelado"
)

const (
	DeliveryStatusScheduled = "programada"
	DeliveryStatusEnRoute   = "en_ruta"
	DeliveryStatusDelivered = "entregada"
	DeliveryStatusReturned  = "devuelta"
)

// DeliveryStatuses is the fixed fan-out set used by the deliveries board.
var DeliveryStatuses = []string{
	DeliveryStatusScheduled,
	DeliveryStatusEnRoute,
	DeliveryStatusDelivered,
	DeliveryStatusReturned,
}

// ── Group C: Derived labels ──

const (
	StockStatusAvailable  = "available"
	StockStatusLow        = "low"
	StockStatusOutOfStock = "out_of_stock"
)

// LowStockThreshold is the inclusive upper bound for StockStatusLow.
const LowStockThreshold = 10

// StockStatusFor derives the display label for a stock level.
func StockStatusFor(stock int) string {
	switch {
	case stock > LowStockThreshold:
		return StockStatusAvailable
	case stock > 0:
		return StockStatusLow
	}
	return StockStatusOutOfStock
}

const (
	VisitPriorityHigh   = "alta"
	VisitPriorityMedium = "media"
	VisitPriorityLow    = "baja"
)

const (
	RouteOriginPlanned      = "planificada"
	RouteOriginRecalculated = "recalculada"
	RouteOriginManual       = "manual"
)

const (
	VisitTypeFollowUp     = "Seguimiento"
	VisitTypePresentation = "Presentación"
	VisitTypeSupport      = "Soporte técnico"
	VisitTypeCommercial   = "Reunión comercial"
	VisitTypeTraining     = "Capacitación"
	VisitTypeOther        = "Otro"
)

// VisitTypes lists the accepted tipo_visita values.
var VisitTypes = []string{
	VisitTypeFollowUp,
	VisitTypePresentation,
	VisitTypeSupport,
	VisitTypeCommercial,
	VisitTypeTraining,
	VisitTypeOther,
}

const (
	InstitutionHospital  = "Hospital"
	InstitutionClinic    = "Clínica"
	InstitutionIPS       = "IPS"
	InstitutionEPS       = "EPS"
	InstitutionLab       = "Laboratorio Clínico"
	InstitutionHealthCtr = "Centro de Salud"
)

// InstitutionTypes lists the accepted tipo_institucion values.
var InstitutionTypes = []string{
	InstitutionHospital,
	InstitutionClinic,
	InstitutionIPS,
	InstitutionEPS,
	InstitutionLab,
	InstitutionHealthCtr,
}

// ── Group D: Error codes (gateway error bodies) ──

const (
	ErrorCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeUnauthorized      = "UNAUTHORIZED"
	ErrorCodeForbidden         = "FORBIDDEN"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// ── Group E: Live feed events ──

const (
	EventDeliveryUpdated = "delivery.updated"
	EventOrderCreated    = "order.created"
)
