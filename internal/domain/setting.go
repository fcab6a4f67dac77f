package domain

import "time"

// Setting is a row of the archon_settings table.
type Setting struct {
	Key            string
	Value          string
	EncryptedValue []byte
	IsEncrypted    bool
	Category       string
	UpdatedAt      time.Time
}
