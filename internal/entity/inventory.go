package entity

// InventoryEntry is one hospital's stock of a (blood group, component) pair.
// Unique per (hospital_id, blood_group, component).
type InventoryEntry struct {
	ID             int64  `json:"id" db:"id"`
	HospitalID     int64  `json:"hospital_id" db:"hospital_id"`
	BloodGroup     string `json:"blood_group" db:"blood_group"`
	Component      string `json:"component" db:"component"`
	UnitsAvailable int    `json:"units_available" db:"units_available"`
	UnitsReserved  int    `json:"units_reserved" db:"units_reserved"`
}

type AdjustOp string

const (
	AdjustOpAdd      AdjustOp = "add"
	AdjustOpSubtract AdjustOp = "subtract"
)

func (op AdjustOp) Valid() bool {
	return op == AdjustOpAdd || op == AdjustOpSubtract
}

// InventorySummary groups a hospital's stock by blood group for dashboards.
type InventorySummary struct {
	Total       int                         `json:"total"`
	Reserved    int                         `json:"reserved"`
	ByComponent map[string]ComponentSummary `json:"byComponent"`
}

type ComponentSummary struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
}
