package valueobject

import (
	"fmt"
	"strings"
)

// BusinessCategory classifies a filer. Small-vendor subtypes are revenue-modelled on
// daily takings rather than floor area.
type BusinessCategory struct {
	value  string
	label  string
	vendor bool
}

var (
	CategoryCorporate     = BusinessCategory{value: "CORPORATE", label: "Office/Corporate"}
	CategoryManufacturing = BusinessCategory{value: "MANUFACTURING", label: "Manufacturing"}
	CategoryService       = BusinessCategory{value: "SERVICE", label: "Service Provider"}
	CategoryRetail        = BusinessCategory{value: "RETAIL", label: "Retail Shop"}
	CategoryTrading       = BusinessCategory{value: "TRADING", label: "Import/Export Trading"}
	CategoryMegaMart      = BusinessCategory{value: "MEGA_MART", label: "Mega Mart"}
	CategoryMNC           = BusinessCategory{value: "MNC", label: "MNC (Multinational Corporation)"}
	CategoryRental        = BusinessCategory{value: "RENTAL", label: "Rental Business"}
	CategoryECommerce     = BusinessCategory{value: "ECOMMERCE", label: "E-commerce"}
	CategoryRestaurant    = BusinessCategory{value: "RESTAURANT", label: "Restaurant/Food Service"}
	CategoryHealthcare    = BusinessCategory{value: "HEALTHCARE", label: "Healthcare/Medical"}
	CategoryEducation     = BusinessCategory{value: "EDUCATION", label: "Educational Institution"}
	CategoryRealEstate    = BusinessCategory{value: "REAL_ESTATE", label: "Real Estate Developer"}
	CategoryJewelry       = BusinessCategory{value: "JEWELRY", label: "Jewelry/Gold Business"}
	CategoryConstruction  = BusinessCategory{value: "CONSTRUCTION", label: "Construction Company"}

	CategoryStreetVendorFood  = BusinessCategory{value: "STREET_VENDOR_FOOD", label: "Street Vendor - Food", vendor: true}
	CategoryStreetVendorGoods = BusinessCategory{value: "STREET_VENDOR_GOODS", label: "Street Vendor - Goods", vendor: true}
	CategoryHawker            = BusinessCategory{value: "HAWKER", label: "Small Hawker/Peddler", vendor: true}
	CategoryRoadsideStall     = BusinessCategory{value: "ROADSIDE_STALL", label: "Roadside Stall", vendor: true}
	CategoryMobileVendor      = BusinessCategory{value: "MOBILE_VENDOR", label: "Mobile Vendor", vendor: true}
	CategoryKiosk             = BusinessCategory{value: "KIOSK", label: "Kiosk/Booth", vendor: true}
	CategoryDhaba             = BusinessCategory{value: "DHABA", label: "Small Dhaba", vendor: true}
	CategoryPanShop           = BusinessCategory{value: "PAN_SHOP", label: "Pan/Cigarette Shop", vendor: true}
	CategoryProduceVendor     = BusinessCategory{value: "PRODUCE_VENDOR", label: "Fruit/Vegetable Vendor", vendor: true}
	CategoryTeaStall          = BusinessCategory{value: "TEA_STALL", label: "Tea Stall", vendor: true}
)

var allCategories = []BusinessCategory{
	CategoryCorporate,
	CategoryManufacturing,
	CategoryService,
	CategoryRetail,
	CategoryTrading,
	CategoryMegaMart,
	CategoryMNC,
	CategoryRental,
	CategoryECommerce,
	CategoryRestaurant,
	CategoryHealthcare,
	CategoryEducation,
	CategoryRealEstate,
	CategoryJewelry,
	CategoryConstruction,
	CategoryStreetVendorFood,
	CategoryStreetVendorGoods,
	CategoryHawker,
	CategoryRoadsideStall,
	CategoryMobileVendor,
	CategoryKiosk,
	CategoryDhaba,
	CategoryPanShop,
	CategoryProduceVendor,
	CategoryTeaStall,
}

// AllCategories returns every known category in catalogue order.
func AllCategories() []BusinessCategory {
	out := make([]BusinessCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryFromString accepts the canonical code case-insensitively.
func CategoryFromString(s string) (BusinessCategory, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for _, c := range allCategories {
		if c.value == code {
			return c, nil
		}
	}
	return BusinessCategory{}, fmt.Errorf("invalid business category: %s", s)
}

// String returns the canonical code.
func (c BusinessCategory) String() string {
	return c.value
}

// Label returns the human readable name used in prompts and reports.
func (c BusinessCategory) Label() string {
	return c.label
}

// IsCashIntensive reports whether takings are mostly cash, which makes inflated revenue
// a laundering signal rather than plain over-reporting.
func (c BusinessCategory) IsCashIntensive() bool {
	if c.vendor {
		return true
	}
	switch c.value {
	case CategoryRetail.value, CategoryRestaurant.value, CategoryJewelry.value, CategoryRealEstate.value:
		return true
	}
	return false
}

// IsSmallVendor reports whether the daily-revenue model applies.
func (c BusinessCategory) IsSmallVendor() bool {
	return c.vendor
}

// IsZero returns true if the BusinessCategory has not been set.
func (c BusinessCategory) IsZero() bool {
	return c.value == ""
}

func (c BusinessCategory) Equal(other BusinessCategory) bool {
	return c.value == other.value
}
