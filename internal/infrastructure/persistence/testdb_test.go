package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// every pooled connection gets its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&InvoiceModel{},
		&InvoiceItemModel{},
		&CustomerCreditModel{},
		&ProjectCreditModel{},
		&ComponentUsageModel{},
		&PlanModel{},
		&PlanComponentModel{},
		&ResourcePlanPeriodModel{},
		&ResourceModel{},
		&PaymentProfileModel{},
	)
	require.NoError(t, err)

	return db
}
