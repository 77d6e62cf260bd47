package refdata

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type seedBank struct {
	name   string
	prefix string
}

var seedBanks = []seedBank{
	{"State Bank of India", "SBIN"},
	{"HDFC Bank", "HDFC"},
	{"ICICI Bank", "ICIC"},
	{"Axis Bank", "UTIB"},
	{"Punjab National Bank", "PUNB"},
	{"Canara Bank", "CNRB"},
}

var seedNames = []string{
	"Venkatesh Reddy", "Ramesh Naidu", "Srinivas Rao", "Krishna Goud",
	"Mohan Yadav", "Ravi Kumar", "Suresh Babu", "Prasad Murthy",
	"Lakshmi Devi", "Sridevi Naidu", "Padma Rao", "Sunitha Goud",
	"Anuradha Yadav", "Radhika Kumar", "Geetha Babu", "Uma Murthy",
	"Chaitanya Reddy", "Aditya Naidu", "Nandini Reddy", "Kavitha Rao",
}

var seedDistricts = []string{
	"Kurnool", "Anantapur", "Chittoor", "Visakhapatnam", "Krishna",
	"Hyderabad", "Warangal", "Nizamabad", "Khammam", "Karimnagar",
}

// Seed loads a deterministic reference registry. The generator is
// seeded with a fixed value so every run produces identical PANs,
// national IDs and account numbers, which keeps local-mode demos and
// tests stable. Roughly one in four accounts is inactive.
func Seed(ctx context.Context, w Writer) error {
	rng := rand.New(rand.NewSource(42))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	for i, name := range seedNames {
		pan := fmt.Sprintf("%c%c%cP%c%04d%c",
			letters[rng.Intn(26)], letters[rng.Intn(26)], letters[rng.Intn(26)],
			letters[rng.Intn(26)], rng.Intn(10000), letters[rng.Intn(26)])
		aadhaar := fmt.Sprintf("%012d", rng.Int63n(1_000_000_000_000))
		dob := time.Date(1965+rng.Intn(40), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		district := seedDistricts[rng.Intn(len(seedDistricts))]

		gender := "Male"
		if i >= 8 && i < 16 {
			gender = "Female"
		}

		if err := w.PutPAN(ctx, &PANRecord{
			PANNumber:     pan,
			AadhaarNumber: aadhaar,
			FullName:      name,
			DOB:           dob,
			Address:       district + ", India",
			Gender:        gender,
		}); err != nil {
			return fmt.Errorf("seed pan record: %w", err)
		}

		bank := seedBanks[rng.Intn(len(seedBanks))]
		if err := w.PutBankAccount(ctx, &BankAccountRecord{
			AccountNumber:     fmt.Sprintf("%03d%07d", i+1, rng.Intn(9_000_000)+1_000_000),
			IFSC:              fmt.Sprintf("%s0%06d", bank.prefix, rng.Intn(1_000_000)),
			BankName:          bank.name,
			AccountHolderName: name,
			IsActive:          rng.Intn(4) != 0,
		}); err != nil {
			return fmt.Errorf("seed bank account record: %w", err)
		}
	}
	return nil
}
