package database

import (
    "context"
    "database/sql"
    "time"
)

// statements creates the engine's tables when they do not exist yet.
// The unique indexes are load-bearing: occupied_units enforces single
// ownership of a unit per resource instance, and bookings enforces
// at-most-one booking per transaction id.
var statements = []string{
    `CREATE TABLE IF NOT EXISTS users (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        email VARCHAR(255) NOT NULL UNIQUE,
        password_hash VARCHAR(255) NOT NULL,
        role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER',
        is_active TINYINT(1) NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
    `CREATE TABLE IF NOT EXISTS resources (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        name VARCHAR(255) NOT NULL,
        kind VARCHAR(16) NOT NULL,
        description TEXT,
        schedule VARCHAR(255) NOT NULL DEFAULT '',
        is_active TINYINT(1) NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
    `CREATE TABLE IF NOT EXISTS resource_units (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        resource_id BIGINT UNSIGNED NOT NULL,
        unit_code VARCHAR(32) NOT NULL,
        label VARCHAR(64) NOT NULL DEFAULT '',
        price_cents BIGINT NOT NULL,
        UNIQUE KEY uq_resource_unit (resource_id, unit_code)
    )`,
    `CREATE TABLE IF NOT EXISTS occupied_units (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        resource_id BIGINT UNSIGNED NOT NULL,
        travel_date VARCHAR(10) NOT NULL DEFAULT '',
        unit_code VARCHAR(32) NOT NULL,
        transaction_id CHAR(64) NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE KEY uq_occupied (resource_id, travel_date, unit_code)
    )`,
    `CREATE TABLE IF NOT EXISTS bookings (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        reference VARCHAR(16) NOT NULL UNIQUE,
        resource_id BIGINT UNSIGNED NOT NULL,
        travel_date VARCHAR(10) NOT NULL DEFAULT '',
        traveler_id BIGINT UNSIGNED NOT NULL,
        total_amount_cents BIGINT NOT NULL,
        amount_paid_cents BIGINT NOT NULL,
        remaining_amount_cents BIGINT NOT NULL,
        payment_status VARCHAR(16) NOT NULL,
        booking_status VARCHAR(16) NOT NULL,
        transaction_id CHAR(64) NOT NULL UNIQUE,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
    `CREATE TABLE IF NOT EXISTS booking_units (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        booking_id BIGINT UNSIGNED NOT NULL,
        unit_code VARCHAR(32) NOT NULL,
        UNIQUE KEY uq_booking_unit (booking_id, unit_code)
    )`,
    `CREATE TABLE IF NOT EXISTS refunds (
        id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        transaction_id CHAR(64) NOT NULL UNIQUE,
        traveler_id BIGINT UNSIGNED NOT NULL,
        resource_id BIGINT UNSIGNED NOT NULL,
        travel_date VARCHAR(10) NOT NULL DEFAULT '',
        unit_codes VARCHAR(512) NOT NULL DEFAULT '',
        amount_paid_cents BIGINT NOT NULL,
        currency VARCHAR(8) NOT NULL,
        reason VARCHAR(255) NOT NULL DEFAULT '',
        resolved TINYINT(1) NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
}

// EnsureSchema creates missing tables.  Each statement is idempotent,
// so running it on every startup is safe.
func EnsureSchema(db *sql.DB) error {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    for _, stmt := range statements {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return err
        }
    }
    return nil
}
