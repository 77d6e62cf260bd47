package refdata

import "context"

// Store is the read surface the local providers consume.
type Store interface {
	GetByPAN(ctx context.Context, panNumber string) (*PANRecord, error)
	GetByAadhaar(ctx context.Context, aadhaarNumber string) (*PANRecord, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*BankAccountRecord, error)
}

// Writer is the write surface used by seeding.
type Writer interface {
	PutPAN(ctx context.Context, record *PANRecord) error
	PutBankAccount(ctx context.Context, record *BankAccountRecord) error
}
