package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"
)

// issuerName identifies this application in TOTP enrollments and JWT claims.
const issuerName = "PharmView"

// GenerateTOTPSecret creates a new TOTP enrollment for the account and
// returns the shared secret together with the otpauth:// provisioning URL
// for authenticator apps.
func GenerateTOTPSecret(accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuerName,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// VerifyTOTPCode checks a TOTP code against the enrolled shared secret.
func VerifyTOTPCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
