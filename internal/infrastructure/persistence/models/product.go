package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
)

// ImportedProductModel is the persistence model for the ImportedProduct
// domain entity. Scraped collections are stored as JSON documents: they are
// read and written whole, never queried by element.
type ImportedProductModel struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	Title         string          `gorm:"type:varchar(200);not null"`
	Description   string          `gorm:"type:text"`
	Brand         string          `gorm:"type:varchar(255)"`
	SKU           string          `gorm:"type:varchar(100);not null"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	OriginalPrice decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'EUR'"`

	Images         string `gorm:"type:jsonb;default:'[]'"`
	Videos         string `gorm:"type:jsonb;default:'[]'"`
	Variants       string `gorm:"type:jsonb;default:'[]'"`
	Reviews        string `gorm:"type:jsonb;default:'[]'"`
	Specifications string `gorm:"type:jsonb;default:'{}'"`
	Shipping       string `gorm:"type:jsonb;default:'{}'"`

	StockStatus   string `gorm:"type:varchar(20);not null;default:'unknown'"`
	StockQuantity *int

	Status          string `gorm:"type:varchar(20);not null;index"`
	NeedsReview     bool   `gorm:"not null;default:false"`
	ValidationScore int    `gorm:"not null;default:0"`

	LastSyncAt *time.Time `gorm:"type:timestamptz;index"`

	Source *ProductSourceModel `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ImportedProductModel) TableName() string {
	return "imported_products"
}

// ProductSourceModel is the provenance row written atomically with its
// product. One row per product.
type ProductSourceModel struct {
	BaseModel
	ProductID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	SourcePlatform string    `gorm:"type:varchar(20);not null;index"`
	SourceURL      string    `gorm:"type:text;not null"`
	ExternalID     string    `gorm:"type:varchar(100);index"`
	ImportedAt     time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (ProductSourceModel) TableName() string {
	return "product_sources"
}

// ToDomain converts the persistence model to a domain ImportedProduct.
func (m *ImportedProductModel) ToDomain() *catalog.ImportedProduct {
	product := &catalog.ImportedProduct{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,

		Title:         m.Title,
		Description:   m.Description,
		Brand:         m.Brand,
		SKU:           m.SKU,
		Price:         m.Price,
		OriginalPrice: m.OriginalPrice,
		Currency:      m.Currency,

		StockStatus:   extraction.StockStatus(m.StockStatus),
		StockQuantity: m.StockQuantity,

		Status:          catalog.ProductStatus(m.Status),
		NeedsReview:     m.NeedsReview,
		ValidationScore: m.ValidationScore,
		LastSyncAt:      m.LastSyncAt,
	}

	_ = json.Unmarshal([]byte(orDefault(m.Images, "[]")), &product.Images)
	_ = json.Unmarshal([]byte(orDefault(m.Videos, "[]")), &product.Videos)
	_ = json.Unmarshal([]byte(orDefault(m.Variants, "[]")), &product.Variants)
	_ = json.Unmarshal([]byte(orDefault(m.Reviews, "[]")), &product.Reviews)
	_ = json.Unmarshal([]byte(orDefault(m.Specifications, "{}")), &product.Specifications)
	_ = json.Unmarshal([]byte(orDefault(m.Shipping, "{}")), &product.Shipping)

	if m.Source != nil {
		product.Provenance = m.Source.ToProvenance()
	}
	return product
}

// FromDomain populates the persistence model from a domain ImportedProduct.
func (m *ImportedProductModel) FromDomain(p *catalog.ImportedProduct) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.UserID = p.UserID

	m.Title = p.Title
	m.Description = p.Description
	m.Brand = p.Brand
	m.SKU = p.SKU
	m.Price = p.Price
	m.OriginalPrice = p.OriginalPrice
	m.Currency = p.Currency

	m.Images = mustJSON(p.Images, "[]")
	m.Videos = mustJSON(p.Videos, "[]")
	m.Variants = mustJSON(p.Variants, "[]")
	m.Reviews = mustJSON(p.Reviews, "[]")
	m.Specifications = mustJSON(p.Specifications, "{}")
	m.Shipping = mustJSON(p.Shipping, "{}")

	m.StockStatus = string(p.StockStatus)
	m.StockQuantity = p.StockQuantity

	m.Status = string(p.Status)
	m.NeedsReview = p.NeedsReview
	m.ValidationScore = p.ValidationScore
	m.LastSyncAt = p.LastSyncAt
}

// ToProvenance converts the source row to the domain value object.
func (m *ProductSourceModel) ToProvenance() catalog.Provenance {
	return catalog.Provenance{
		SourcePlatform: extraction.Platform(m.SourcePlatform),
		SourceURL:      m.SourceURL,
		ExternalID:     m.ExternalID,
		ImportedAt:     m.ImportedAt,
	}
}

// FromProvenance populates the source row from the domain value object.
func (m *ProductSourceModel) FromProvenance(productID uuid.UUID, p catalog.Provenance) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.ProductID = productID
	m.SourcePlatform = string(p.SourcePlatform)
	m.SourceURL = p.SourceURL
	m.ExternalID = p.ExternalID
	m.ImportedAt = p.ImportedAt
}

func mustJSON(v any, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(data)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
