package db

import (
	"fmt"

	"gorm.io/gorm"
)

// The metrics layer never creates or alters relations. These statements only
// add read indexes for the leaderboard join when the tables are present.
var indexStatements = []string{
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'driver_assignments' AND table_schema = current_schema()) THEN
			CREATE INDEX IF NOT EXISTS idx_driver_assignments_shipment ON driver_assignments (shipment_id);
			CREATE INDEX IF NOT EXISTS idx_driver_assignments_driver ON driver_assignments (driver_id);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'shipments' AND table_schema = current_schema()) THEN
			CREATE INDEX IF NOT EXISTS idx_shipments_created_at ON shipments (created_at);
			CREATE INDEX IF NOT EXISTS idx_shipments_dest_state ON shipments (dest_state);
		END IF;
	END
	$$;`,
}

func bootstrapIndexes(db *gorm.DB) error {
	for i, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index bootstrap %d failed: %w", i+1, err)
		}
	}
	return nil
}
