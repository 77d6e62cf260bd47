// Package refdata holds the reference identity registry the local
// verification providers consult: PAN records keyed by PAN number (each
// carrying the linked national ID) and bank accounts keyed by account
// number. In production deployments the external providers replace this
// registry entirely.
package refdata

import "time"

// PANRecord is one row of the PAN registry. AadhaarNumber links the
// record to the national ID registry, so a single lookup serves both
// tax-ID and national-ID verification.
type PANRecord struct {
	PANNumber     string
	AadhaarNumber string
	FullName      string
	DOB           time.Time
	Address       string
	Gender        string
}

// BankAccountRecord is one row of the bank account registry.
type BankAccountRecord struct {
	AccountNumber     string
	IFSC              string
	BankName          string
	AccountHolderName string
	IsActive          bool
}
