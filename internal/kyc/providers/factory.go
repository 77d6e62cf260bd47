package providers

import (
	"log/slog"
	"os"

	"kycd/internal/kyc/config"
	"kycd/internal/refdata"
)

// NewSet builds the provider set for the configured mode. Local mode
// answers from the reference registry; api mode calls the real
// verification services with credentials from the environment.
func NewSet(mode string, registry refdata.Store, cfg *config.Config, logger *slog.Logger) *Set {
	if mode == "api" {
		ext := externalConfigFromEnv()
		logger.Info("verification providers: external APIs")
		return &Set{
			PAN:      guardPAN(NewAPIPAN(ext, cfg.PAN.NameMatchThreshold), logger),
			Aadhaar:  guardAadhaar(NewAPIAadhaar(ext), logger),
			Bank:     guardBank(NewAPIBank(ext, cfg.Bank.NameMatchThreshold), logger),
			Document: guardDocument(NewAPIDocument(ext), logger),
		}
	}

	logger.Info("verification providers: local reference registry")
	return &Set{
		PAN:      NewLocalPAN(registry, cfg.PAN.NameMatchThreshold),
		Aadhaar:  NewLocalAadhaar(registry),
		Bank:     NewLocalBank(registry, cfg.Bank.NameMatchThreshold),
		Document: NewLocalDocument(),
	}
}

func externalConfigFromEnv() ExternalConfig {
	return ExternalConfig{
		PANAPIURL: os.Getenv("PAN_API_URL"),
		PANAPIKey: os.Getenv("PAN_API_KEY"),

		BankAPIURL:       os.Getenv("BANK_API_URL"),
		BankClientID:     os.Getenv("BANK_CLIENT_ID"),
		BankClientSecret: os.Getenv("BANK_CLIENT_SECRET"),

		AadhaarAuthURL:     os.Getenv("LOCKER_AUTH_URL"),
		AadhaarTokenURL:    os.Getenv("LOCKER_TOKEN_URL"),
		AadhaarDataURL:     os.Getenv("LOCKER_DATA_URL"),
		AadhaarClientID:    os.Getenv("LOCKER_CLIENT_ID"),
		AadhaarSecret:      os.Getenv("LOCKER_CLIENT_SECRET"),
		AadhaarRedirectURI: os.Getenv("LOCKER_REDIRECT_URI"),

		DocumentAPIURL: os.Getenv("OCR_API_URL"),
		DocumentAppID:  os.Getenv("OCR_APP_ID"),
		DocumentAppKey: os.Getenv("OCR_APP_KEY"),
	}
}
