// Package model holds the JSON contracts shared by the gateway client and the
// mock gateway.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/shopspring/decimal"
)

// --- Errors ---

type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// --- Auth ---

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        auth.User `json:"user"`
}

type VerifyResponse struct {
	Valid bool       `json:"valid"`
	User  *auth.User `json:"user,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	NIT      string `json:"nit"`
}

// --- Products ---

type Product struct {
	ProductID      uuid.UUID       `json:"productId" yaml:"product_id"`
	SKU            string          `json:"sku" yaml:"sku"`
	Name           string          `json:"name" yaml:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice" yaml:"unit_price"`
	Stock          int             `json:"stock" yaml:"stock"`
	StockStatus    string          `json:"stockStatus" yaml:"-"`
	ExpirationDate string          `json:"expirationDate,omitempty" yaml:"expiration_date,omitempty"`
	Location       string          `json:"location,omitempty" yaml:"location,omitempty"`
	Category       string          `json:"category,omitempty" yaml:"category,omitempty"`
}

type ProductPage struct {
	Items    []Product `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

type StockCheckRequest struct {
	RequestedQuantity int `json:"requestedQuantity"`
}

type StockCheck struct {
	Valid     bool   `json:"valid"`
	Available int    `json:"available"`
	Message   string `json:"message,omitempty"`
}

// --- Customers ---

type Customer struct {
	ID               int64     `json:"cliente_id" yaml:"cliente_id"`
	NIT              string    `json:"nit" yaml:"nit"`
	TradeName        string    `json:"nombre_comercial" yaml:"nombre_comercial"`
	LegalName        string    `json:"razon_social" yaml:"razon_social"`
	InstitutionType  string    `json:"tipo_institucion" yaml:"tipo_institucion"`
	Country          string    `json:"pais" yaml:"pais"`
	Department       string    `json:"departamento,omitempty" yaml:"departamento,omitempty"`
	City             string    `json:"ciudad,omitempty" yaml:"ciudad,omitempty"`
	Address          string    `json:"direccion,omitempty" yaml:"direccion,omitempty"`
	Phone            string    `json:"telefono,omitempty" yaml:"telefono,omitempty"`
	Email            string    `json:"email,omitempty" yaml:"email,omitempty"`
	MainContact      string    `json:"contacto_principal,omitempty" yaml:"contacto_principal,omitempty"`
	ContactTitle     string    `json:"cargo_contacto,omitempty" yaml:"cargo_contacto,omitempty"`
	MedicalSpecialty string    `json:"especialidad_medica,omitempty" yaml:"especialidad_medica,omitempty"`
	Active           bool      `json:"activo" yaml:"activo"`
	ManagerID        string    `json:"gerente_id,omitempty" yaml:"gerente_id,omitempty"`
	RegisteredAt     time.Time `json:"fecha_registro,omitempty" yaml:"fecha_registro,omitempty"`
	UpdatedAt        time.Time `json:"fecha_actualizacion,omitempty" yaml:"fecha_actualizacion,omitempty"`
}

type CustomerPage struct {
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
	Customers []Customer `json:"clientes"`
}

type InstitutionTypes struct {
	Types []string `json:"tipos"`
}

// --- Orders ---

type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type OrderRequest struct {
	CustomerID       int64       `json:"customerId"`
	AccountManagerID string      `json:"accountManagerId,omitempty"`
	NIT              string      `json:"nit,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	Items            []OrderItem `json:"items"`
}

type OrderCreated struct {
	OrderID         string          `json:"orderId"`
	ReferenceNumber string          `json:"referenceNumber"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type OrderLine struct {
	ProductID   uuid.UUID       `json:"producto_id"`
	ProductName string          `json:"nombre_producto"`
	Quantity    int             `json:"cantidad_solicitada"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID         string          `json:"pedido_id"`
	Reference  string          `json:"numero_pedido"`
	CustomerID int64           `json:"cliente_id"`
	ManagerID  string          `json:"gerente_id,omitempty"`
	NIT        string          `json:"nit"`
	Status     string          `json:"estado"`
	Total      decimal.Decimal `json:"monto_total"`
	Notes      string          `json:"observaciones,omitempty"`
	CreatedAt  time.Time       `json:"fecha_creacion"`
	Lines      []OrderLine     `json:"detalles"`
}

// Units is the number of units across all lines.
func (o Order) Units() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

type OrderPage struct {
	Total   int     `json:"total"`
	Page    int     `json:"pagina"`
	PerPage int     `json:"por_pagina"`
	Orders  []Order `json:"pedidos"`
}

type StatusChange struct {
	Status  string    `json:"estado"`
	At      time.Time `json:"fecha"`
	Comment string    `json:"comentario,omitempty"`
}

type OrderHistory struct {
	OrderID string         `json:"pedido_id"`
	Changes []StatusChange `json:"historial"`
}

// --- Deliveries ---

type Delivery struct {
	ID           string    `json:"entrega_id" yaml:"entrega_id"`
	OrderID      string    `json:"pedido_id" yaml:"pedido_id"`
	OrderRef     string    `json:"numero_pedido,omitempty" yaml:"numero_pedido,omitempty"`
	NIT          string    `json:"nit" yaml:"nit"`
	Status       string    `json:"estado" yaml:"estado"`
	Address      string    `json:"direccion" yaml:"direccion"`
	ScheduledFor time.Time `json:"fecha_programada" yaml:"fecha_programada"`
	Driver       string    `json:"conductor,omitempty" yaml:"conductor,omitempty"`
	Vehicle      string    `json:"vehiculo,omitempty" yaml:"vehiculo,omitempty"`
}

type DeliveryList struct {
	Total      int        `json:"total"`
	Deliveries []Delivery `json:"entregas"`
}

type TrackingEvent struct {
	Status      string    `json:"estado" yaml:"estado"`
	At          time.Time `json:"fecha" yaml:"fecha"`
	Location    string    `json:"ubicacion,omitempty" yaml:"ubicacion,omitempty"`
	Description string    `json:"descripcion,omitempty" yaml:"descripcion,omitempty"`
}

type Tracking struct {
	Delivery Delivery        `json:"entrega"`
	Events   []TrackingEvent `json:"eventos"`
}

// DeliveryEvent is a live feed message.
type DeliveryEvent struct {
	Type     string   `json:"type"`
	Delivery Delivery `json:"entrega"`
}

// --- Routes ---

type RouteVisit struct {
	VisitID            int64    `json:"visita_id" yaml:"visita_id"`
	CustomerID         int64    `json:"cliente_id" yaml:"cliente_id"`
	CustomerName       string   `json:"nombre_cliente" yaml:"nombre_cliente"`
	CustomerAddress    string   `json:"direccion_cliente" yaml:"direccion_cliente"`
	Latitude           *float64 `json:"latitud" yaml:"latitud"`
	Longitude          *float64 `json:"longitud" yaml:"longitud"`
	SuggestedStart     string   `json:"hora_inicio_sugerida" yaml:"hora_inicio_sugerida"`
	SuggestedEnd       string   `json:"hora_fin_sugerida" yaml:"hora_fin_sugerida"`
	EstimatedMinutes   int      `json:"duracion_estimada_minutos" yaml:"duracion_estimada_minutos"`
	Order              int      `json:"orden_en_ruta" yaml:"orden_en_ruta"`
	Priority           string   `json:"prioridad" yaml:"prioridad"`
	DistanceFromPrevKm *float64 `json:"distancia_desde_anterior_km" yaml:"distancia_desde_anterior_km"`
	TravelFromPrevMin  *int     `json:"tiempo_viaje_desde_anterior_min" yaml:"tiempo_viaje_desde_anterior_min"`
}

type Route struct {
	ID             int64        `json:"ruta_id" yaml:"ruta_id"`
	ManagerID      string       `json:"gerente_id" yaml:"gerente_id"`
	Date           string       `json:"fecha_ruta" yaml:"fecha_ruta"`
	Version        int          `json:"version_ruta" yaml:"version_ruta"`
	TotalKm        float64      `json:"distancia_total_km" yaml:"distancia_total_km"`
	TotalMinutes   int          `json:"tiempo_total_minutos" yaml:"tiempo_total_minutos"`
	SuggestedStart string       `json:"hora_inicio_sugerida" yaml:"hora_inicio_sugerida"`
	SuggestedEnd   string       `json:"hora_fin_sugerida" yaml:"hora_fin_sugerida"`
	Origin         string       `json:"origen_ruta" yaml:"origen_ruta"`
	CalculatedAt   time.Time    `json:"fecha_calculo" yaml:"fecha_calculo"`
	Active         bool         `json:"activa" yaml:"activa"`
	Visits         []RouteVisit `json:"visitas" yaml:"visitas"`
	VisitCount     int          `json:"cantidad_visitas" yaml:"cantidad_visitas"`
}

// --- Visits ---

type Evidence struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	URL         string `json:"url"`
}

type Visit struct {
	ID             int64      `json:"id"`
	ClientID       int64      `json:"client_id"`
	AccountMgrID   string     `json:"account_mgr_id"`
	VisitDatetime  time.Time  `json:"visit_datetime"`
	Title          string     `json:"title,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	ContactName    string     `json:"contacto_nombre,omitempty"`
	VisitType      string     `json:"tipo_visita,omitempty"`
	VisitObjective string     `json:"objetivo_visita,omitempty"`
	Evidences      []Evidence `json:"evidences"`
}

type VisitRequest struct {
	ClientID       int64     `json:"client_id"`
	VisitDatetime  time.Time `json:"visit_datetime"`
	Title          string    `json:"title,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ContactName    string    `json:"contacto_nombre"`
	VisitType      string    `json:"tipo_visita"`
	VisitObjective string    `json:"objetivo_visita"`
}

type VisitCreated struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type VisitList struct {
	Items []Visit `json:"items"`
	Total int     `json:"total"`
}

type EvidenceUpload struct {
	Items []Evidence `json:"items"`
	Count int        `json:"count"`
}

type EvidenceURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
