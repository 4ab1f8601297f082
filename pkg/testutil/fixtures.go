package testutil

import (
	"github.com/google/uuid"
)

// Fixed identifiers for deterministic tests.
var (
	TestTenantID      = uuid.MustParse("00000000-0000-0000-0000-000000000010")
	TestOtherTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000011")
	TestInvestigator  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
)

// Business identifiers used across fixtures.
const (
	TestVendorBusinessID = "GSTIN-29ABCDE1234F1Z5"
	TestRetailBusinessID = "GSTIN-27PQRSX6789K1Z2"
)
