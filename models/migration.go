package models

import (
	"log"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{}, &Pet{},
		&Product{}, &StockMovement{},
		&Appointment{},
		&Invoice{}, &InvoiceItem{}, &Payment{},
	)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}
